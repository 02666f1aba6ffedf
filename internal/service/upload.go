package service

import (
	"context"
	"log"

	"platefinder/internal/storage"
)

// ImageUpload is a binary asset supplied by the caller, pending upload.
type ImageUpload struct {
	Data        []byte
	ContentType string
}

// deleteUploaded issues best-effort compensating deletes for objects uploaded
// before a failed transaction. Delete failures are logged, never escalated:
// they must not mask the original error.
func deleteUploaded(ctx context.Context, gateway storage.Gateway, objects []storage.Object) {
	for _, obj := range objects {
		if err := gateway.Delete(ctx, obj.Key); err != nil {
			log.Printf("compensating delete failed for object %s: %v", obj.Key, err)
		}
	}
}
