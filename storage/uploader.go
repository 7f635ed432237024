package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/gosimple/slug"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores objects under a key and serves them from a public URL.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// BracketSnapshotKey returns the object key of a tournament's bracket
// snapshot, e.g. "brackets/spring-invitational-u16-42.json".
func BracketSnapshotKey(tournamentName string, tournamentID int) string {
	name := slug.Make(tournamentName)
	if name == "" {
		return fmt.Sprintf("brackets/%d.json", tournamentID)
	}
	return fmt.Sprintf("brackets/%s-%d.json", name, tournamentID)
}
