package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxWorkspaceNameLength = 100
	MaxNodeTypeIDLength    = 64
	MaxLabelLength         = 120

	// Node type ids look like "core.file_browser" or "text-input"
	typeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

func init() {
	validate = validator.New()
}

// ValidateStruct validates any struct carrying `validate` tags.
func ValidateStruct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateWorkspaceName validates a workspace name before it is sent to a
// store. Sanitization for filesystems happens at the store; this rejects
// names no store could key on.
func ValidateWorkspaceName(name string) error {
	if name == "" {
		return errors.New("workspace name cannot be empty")
	}
	if len(name) > MaxWorkspaceNameLength {
		return fmt.Errorf("workspace name exceeds maximum length of %d characters", MaxWorkspaceNameLength)
	}
	return nil
}

// ValidateNodeTypeID validates a node type identifier.
func ValidateNodeTypeID(id string) error {
	if id == "" {
		return errors.New("node type id cannot be empty")
	}
	if len(id) > MaxNodeTypeIDLength {
		return fmt.Errorf("node type id '%s' exceeds maximum length of %d characters", id, MaxNodeTypeIDLength)
	}
	if !typeIDPattern.MatchString(id) {
		return fmt.Errorf("node type id '%s' contains invalid characters (alphanumeric, underscore, dot, hyphen allowed)", id)
	}
	return nil
}

// ValidateEndpoint validates a connection endpoint URL. Accepted schemes are
// ws and wss for the socket, http and https for the request/response API.
func ValidateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("endpoint cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("endpoint '%s' is not a valid URL: %w", raw, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("endpoint '%s' has unsupported scheme '%s' (ws, wss, http, https allowed)", raw, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint '%s' has no host", raw)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "url":
			return fmt.Errorf("%s: must be a valid URL", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
