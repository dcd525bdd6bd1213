package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"trustdocs/internal/intake"
	"trustdocs/internal/model"
	"trustdocs/internal/repository"
	"trustdocs/internal/verification"
)

// actorFromRequest builds the acting identity from gateway-set headers.
// Authentication happens at the edge; these headers are trusted here.
func actorFromRequest(c *fiber.Ctx) intake.Actor {
	return intake.Actor{
		ID:   c.Get("X-Actor-ID"),
		Role: c.Get("X-Actor-Role"),
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay thin: parse, delegate, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc intake.Service, rec verification.Reconciler) {
	// Health endpoint: checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Upload a document into an owner's category slot (multipart/form-data,
	// fields: file, category_id).
	app.Post("/owners/:ownerId/documents", func(c *fiber.Ctx) error {
		ownerID := c.Params("ownerId")
		categoryID := c.FormValue("category_id")
		if categoryID == "" {
			return writeError(c, fiber.StatusBadRequest, "CATEGORY_REQUIRED", "category_id is required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := svc.Submit(c.UserContext(), intake.SubmitRequest{
			OwnerID:          ownerID,
			CategoryID:       categoryID,
			Content:          content,
			OriginalFilename: fh.Filename,
			MimeType:         ct,
			Actor:            actorFromRequest(c),
		})
		if err != nil {
			return mapError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// List an owner's documents with category/status filters and pagination.
	app.Get("/owners/:ownerId/documents", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		filter := repository.DocumentFilter{
			CategoryID: c.Query("category_id"),
			Status:     model.DocumentStatus(c.Query("status")),
		}
		res, err := svc.List(c.UserContext(), actorFromRequest(c), c.Params("ownerId"), filter,
			repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(res)
	})

	// Get document metadata by ID.
	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), actorFromRequest(c), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return mapError(c, err)
		}
		return c.JSON(doc)
	})

	// Download the decrypted document content.
	app.Get("/documents/:id/download", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		dl, err := svc.Download(c.UserContext(), actorFromRequest(c), id)
		if err != nil {
			return mapError(c, err)
		}
		c.Set(fiber.HeaderContentType, dl.Document.MimeType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+dl.Document.OriginalFilename+`"`)
		return c.Send(dl.Content)
	})

	// Delete a document: destroys ciphertext, archives the registry row.
	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), actorFromRequest(c), id); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Current verification status for an owner.
	app.Get("/owners/:ownerId/verification", func(c *fiber.Ctx) error {
		st, err := rec.Status(c.UserContext(), c.Params("ownerId"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(st)
	})

	// External adjudication of a pending verification. Admin capability:
	// owners must not adjudicate themselves.
	app.Post("/owners/:ownerId/verification/adjudicate", func(c *fiber.Ctx) error {
		if !actorFromRequest(c).IsAdmin() {
			return writeError(c, fiber.StatusForbidden, "ACCESS_DENIED", "adjudication requires an admin actor")
		}
		var body struct {
			Decision string `json:"decision"`
			Notes    string `json:"notes"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		st, err := rec.Adjudicate(c.UserContext(), c.Params("ownerId"),
			model.AdjudicationDecision(body.Decision), body.Notes)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(st)
	})

	// Profile-domain change signal: re-evaluates the owner's trust state.
	app.Post("/signals/profile", func(c *fiber.Ctx) error {
		var body struct {
			OwnerID string `json:"owner_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.OwnerID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "owner_id is required")
		}
		if err := rec.SyncProfile(c.UserContext(), body.OwnerID); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})
}
