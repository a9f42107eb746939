package soniox

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// FilesService manages uploaded audio files.
type FilesService struct {
	client *Client
}

// Upload uploads audio content under filename.
func (s *FilesService) Upload(ctx context.Context, filename string, content io.Reader) (*File, error) {
	if filename == "" {
		return nil, configError("filename is required")
	}
	if content == nil {
		return nil, configError("content is required")
	}
	var f File
	if err := s.client.doMultipart(ctx, "files.upload", "/v1/files", filename, content, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UploadFile uploads the file at path.
func (s *FilesService) UploadFile(ctx context.Context, path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "files.upload", Message: "open audio file", Err: err}
	}
	defer f.Close()
	return s.Upload(ctx, filepath.Base(path), f)
}

// Get returns the file with the given id.
func (s *FilesService) Get(ctx context.Context, id string) (*File, error) {
	if id == "" {
		return nil, configError("file id is required")
	}
	var f File
	if err := s.client.doJSON(ctx, "files.get", http.MethodGet, "/v1/files/"+url.PathEscape(id), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns one page of files.
func (s *FilesService) List(ctx context.Context, opts *ListOptions) (*FileList, error) {
	var list FileList
	req := &request{op: "files.list", method: http.MethodGet, path: "/v1/files", query: opts.query()}
	if err := s.client.do(ctx, req, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Delete deletes the file with the given id.
func (s *FilesService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return configError("file id is required")
	}
	return s.client.doJSON(ctx, "files.delete", http.MethodDelete, "/v1/files/"+url.PathEscape(id), nil, nil)
}

func (o *ListOptions) query() url.Values {
	if o == nil {
		return nil
	}
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	return q
}
