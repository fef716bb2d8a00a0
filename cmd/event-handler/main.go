package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"buddy-underwriter/internal/config"
	"buddy-underwriter/internal/domain"
	"buddy-underwriter/internal/events"
	"buddy-underwriter/internal/storage"
)

// The event handler records presigned-upload completions: it marks the
// document stored and moves the deal into UPLOADING on the first object.
// Workflow start stays with the uploads/complete endpoint, after the borrower
// says they are done.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	source := events.NewMinioUploadEventSource(minioClient, cfg.MinioBucket, "", "")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("event-handler listening for object-created events on bucket=%s", cfg.MinioBucket)
	err = source.Run(ctx, func(parent context.Context, event events.UploadEvent) error {
		handleCtx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()

		// Raw text is left empty here; the intake workflow hydrates it from
		// object storage when it begins.
		if err := store.MarkDocumentStored(handleCtx, event.DocumentID, event.ObjectKey, ""); err != nil {
			log.Printf("mark stored failed document_id=%s object=%s: %v", event.DocumentID, event.ObjectKey, err)
			return nil
		}

		if err := store.TransitionDeal(handleCtx, event.DealID, domain.StateUploadSessionReady, domain.StateUploading); err != nil {
			if !errors.Is(err, storage.ErrStateConflict) {
				log.Printf("transition failed deal_id=%s: %v", event.DealID, err)
				return nil
			}
			// Already UPLOADING after an earlier object; nothing to do.
		}

		_ = store.InsertAudit(handleCtx, event.DealID, domain.AuditDocumentStored, map[string]any{
			"document_id": event.DocumentID,
			"object_key":  event.ObjectKey,
			"event":       event.EventName,
		})

		log.Printf("recorded upload deal_id=%s document_id=%s object=%s", event.DealID, event.DocumentID, event.ObjectKey)
		return nil
	})
	if err != nil {
		log.Fatalf("event-handler stopped with error: %v", err)
	}
}
