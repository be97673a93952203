package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/dd0wney/nodewire/pkg/workspace"
)

// WorkspaceStore adapts the client's nexus endpoints to workspace.Store,
// so callers can swap between local files and the backend without caring
// which side holds the bytes. The backend applies the same name
// sanitization as the local FileStore.
type WorkspaceStore struct {
	client *Client
	ctx    context.Context
}

// NewWorkspaceStore wraps a client as a workspace store. The context
// bounds every request the store makes; context.Background() is the usual
// choice for an interactive session.
func NewWorkspaceStore(client *Client, ctx context.Context) *WorkspaceStore {
	if ctx == nil {
		ctx = context.Background()
	}
	return &WorkspaceStore{client: client, ctx: ctx}
}

// Save stores one workspace via POST /nexus/save.
func (s *WorkspaceStore) Save(name string, data workspace.Data) error {
	if name == "" {
		return workspace.ErrNameRequired
	}
	return s.client.postJSON(s.ctx, "/nexus/save", saveRequest{Name: name, Data: data}, nil)
}

// Load fetches one workspace via GET /nexus/load/:name. An unknown name
// maps to workspace.ErrNotFound.
func (s *WorkspaceStore) Load(name string) (workspace.Data, error) {
	if name == "" {
		return workspace.Data{}, workspace.ErrNameRequired
	}

	var data workspace.Data
	err := s.client.getJSON(s.ctx, "/nexus/load/"+url.PathEscape(name), &data)
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.NotFound() {
			return workspace.Data{}, workspace.ErrNotFound
		}
		return workspace.Data{}, err
	}
	return data, nil
}

// List fetches the sorted workspace names via GET /nexus/list.
func (s *WorkspaceStore) List() ([]string, error) {
	var out listResponse
	if err := s.client.getJSON(s.ctx, "/nexus/list", &out); err != nil {
		return nil, err
	}
	if out.Workspaces == nil {
		return []string{}, nil
	}
	return out.Workspaces, nil
}

// Delete removes one workspace via DELETE /nexus/delete/:name.
func (s *WorkspaceStore) Delete(name string) error {
	if name == "" {
		return workspace.ErrNameRequired
	}

	resp, err := s.client.do(s.ctx, "DELETE", "/nexus/delete/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.NotFound() {
			return workspace.ErrNotFound
		}
		return err
	}
	return nil
}

var _ workspace.Store = (*WorkspaceStore)(nil)
