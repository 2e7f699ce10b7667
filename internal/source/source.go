// Package source resolves a recording reference (path, URL, cache or
// database id) to a decoded recording.
package source

import (
	"context"
	"strings"

	"wisefido-ecg/internal/loader"
	"wisefido-ecg/internal/models"
)

// Source fetches one recording by reference.
type Source interface {
	Fetch(ctx context.Context, ref string) (models.Recording, error)
}

// FileSource reads recordings from the local filesystem.
type FileSource struct {
	loader *loader.Loader
}

func NewFileSource(l *loader.Loader) *FileSource {
	return &FileSource{loader: l}
}

// Fetch treats ref as a path.
func (s *FileSource) Fetch(ctx context.Context, ref string) (models.Recording, error) {
	if err := ctx.Err(); err != nil {
		return models.Recording{}, err
	}
	return s.loader.LoadFile(ref)
}

// Resolver dispatches on the reference form:
//
//	/path/to/100m.mat        file
//	https://host/ecg.csv     http
//	cache://rec-1            registered "cache" source
//	db://rec-1               registered "db" source
type Resolver struct {
	file    Source
	http    Source
	schemes map[string]Source
}

// NewResolver creates a resolver. http may be nil.
func NewResolver(file, http Source) *Resolver {
	return &Resolver{file: file, http: http, schemes: make(map[string]Source)}
}

// Register binds scheme:// references to src.
func (r *Resolver) Register(scheme string, src Source) {
	r.schemes[scheme] = src
}

// Fetch implements Source.
func (r *Resolver) Fetch(ctx context.Context, ref string) (models.Recording, error) {
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok {
		return r.file.Fetch(ctx, ref)
	}

	switch scheme {
	case "http", "https":
		if r.http == nil {
			return models.Recording{}, models.NewConfigurationError("http source is not configured")
		}
		return r.http.Fetch(ctx, ref)
	case "file":
		return r.file.Fetch(ctx, rest)
	}

	src, ok := r.schemes[scheme]
	if !ok {
		return models.Recording{}, models.NewConfigurationError("unknown recording scheme %q", scheme)
	}
	if rest == "" {
		return models.Recording{}, models.NewConfigurationError("empty recording id in %q", ref)
	}
	return src.Fetch(ctx, rest)
}
