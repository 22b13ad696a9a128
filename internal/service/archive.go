package service

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/storage"
)

const manifestName = "manifest.json"

var whitespace = regexp.MustCompile(`\s+`)

// Archive is a zip of every document on a package, ready to stream.
type Archive struct {
	Filename string

	pkg   *models.PermitPackage
	blobs storage.BlobStore
	now   time.Time
}

type manifest struct {
	PermitNumber string             `json:"permitNumber"`
	Customer     string             `json:"customer"`
	County       string             `json:"county"`
	PermitType   string             `json:"permitType"`
	Status       string             `json:"status"`
	GeneratedAt  time.Time          `json:"generatedAt"`
	Documents    []manifestDocument `json:"documents"`
}

type manifestDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	URL        string    `json:"url,omitempty"`
	File       string    `json:"file,omitempty"`
	Uploader   string    `json:"uploader"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (s *permitService) PrepareArchive(ctx context.Context, identity *models.Identity, id int64) (*Archive, error) {
	pkg, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if len(pkg.Documents) == 0 {
		return nil, ErrNoDocuments
	}
	return &Archive{
		Filename: ArchiveFilename(pkg),
		pkg:      pkg,
		blobs:    s.blobs,
		now:      s.now(),
	}, nil
}

// ArchiveFilename returns <Customer_Name>_<permitNumber>_Documents.zip.
func ArchiveFilename(pkg *models.PermitPackage) string {
	customer := whitespace.ReplaceAllString(pkg.Customer.Name, "_")
	ref := pkg.PermitNumber
	if ref == "" {
		ref = fmt.Sprintf("%d", pkg.ID)
	}
	return storage.SanitizeFilename(fmt.Sprintf("%s_%s_Documents.zip", customer, ref))
}

// WriteTo streams the zip to w. Documents with stored bytes are copied in;
// link-only documents become .url shortcut files.
func (a *Archive) WriteTo(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)

	m := manifest{
		PermitNumber: a.pkg.PermitNumber,
		Customer:     a.pkg.Customer.Name,
		County:       a.pkg.County,
		PermitType:   a.pkg.PermitType,
		Status:       string(a.pkg.Status),
		GeneratedAt:  a.now,
		Documents:    make([]manifestDocument, 0, len(a.pkg.Documents)),
	}

	for i, doc := range a.pkg.Documents {
		entry := manifestDocument{
			ID:         doc.ID,
			Name:       doc.Name,
			Version:    doc.Version,
			URL:        doc.URL,
			Uploader:   doc.Uploader,
			UploadedAt: doc.UploadedAt,
		}
		prefix := fmt.Sprintf("%02d_", i+1)

		switch {
		case doc.ObjectKey != "" && a.blobs != nil:
			entry.File = prefix + storage.SanitizeFilename(doc.Name)
			if err := a.copyBlob(ctx, zw, entry.File, doc); err != nil {
				return err
			}
		case doc.URL != "":
			entry.File = prefix + storage.SanitizeFilename(doc.Name) + ".url"
			if err := writeShortcut(zw, entry.File, doc.URL, doc.UploadedAt); err != nil {
				return err
			}
		}
		m.Documents = append(m.Documents, entry)
	}

	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: manifestName, Method: zip.Deflate, Modified: a.now})
	if err != nil {
		return fmt.Errorf("failed to add manifest: %w", err)
	}
	if _, err := fw.Write(body); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return zw.Close()
}

func (a *Archive) copyBlob(ctx context.Context, zw *zip.Writer, name string, doc models.Document) error {
	rc, err := a.blobs.Open(ctx, doc.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to open document %s: %w", doc.ID, err)
	}
	defer rc.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: doc.UploadedAt})
	if err != nil {
		return fmt.Errorf("failed to add document %s: %w", doc.ID, err)
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("failed to copy document %s: %w", doc.ID, err)
	}
	return nil
}

func writeShortcut(zw *zip.Writer, name, url string, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("failed to add shortcut %s: %w", name, err)
	}
	_, err = fmt.Fprintf(fw, "[InternetShortcut]\r\nURL=%s\r\n", url)
	return err
}
