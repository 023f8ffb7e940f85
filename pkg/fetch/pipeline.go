package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"imgfetch/pkg/config"
	errs "imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/manifest"
	"imgfetch/pkg/storage"
)

// Outcome is the terminal state of one fetch attempt
type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNotImage  Outcome = "not_image"
	OutcomeTooLarge  Outcome = "too_large"
	OutcomeFailed    Outcome = "failed"
)

// Stage names where an attempt ended
const (
	StageProbe = "probe"
	StageFetch = "fetch"
)

// Attempt records what happened to one URL
type Attempt struct {
	ID      string
	URL     string
	Outcome Outcome
	Stage   string

	// Path is the stored file for stored outcomes
	Path string
	// Existing is the filename already holding the content of a duplicate
	Existing    string
	ContentType string
	// DeclaredLength is the size a probe reported, or -1
	DeclaredLength int64
	Bytes          int64
	Hash           string
	Err            error
}

// Filename returns the base name of the stored file
func (a *Attempt) Filename() string {
	if a.Path == "" {
		return ""
	}
	return filepath.Base(a.Path)
}

// IsImageContentType reports whether a Content-Type names an image
func IsImageContentType(ct string) bool {
	return strings.HasPrefix(ct, "image/")
}

// Pipeline downloads a single URL into the output directory, deduplicating
// by content hash against a manifest.
type Pipeline struct {
	client    *Client
	prober    *Prober
	resolver  *storage.Resolver
	store     *manifest.Store
	maxBytes  int64
	chunkSize int
	logger    logger.Logger
}

// NewPipeline wires a pipeline. prober may be nil to skip probing.
func NewPipeline(client *Client, prober *Prober, resolver *storage.Resolver, store *manifest.Store, cfg config.FetchConfig, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 8192
	}
	return &Pipeline{
		client:    client,
		prober:    prober,
		resolver:  resolver,
		store:     store,
		maxBytes:  cfg.MaxBytes,
		chunkSize: chunkSize,
		logger:    log,
	}
}

// MaxBytes returns the size cap
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

// Fetch runs one attempt for url against m. m is mutated and saved when a
// new image is stored.
func (p *Pipeline) Fetch(ctx context.Context, url string, m *manifest.Manifest) *Attempt {
	a := &Attempt{
		ID:             uuid.NewString(),
		URL:            url,
		Stage:          StageFetch,
		DeclaredLength: -1,
	}
	log := p.logger.WithFields(map[string]interface{}{
		"attempt": a.ID,
		"url":     url,
	})

	p.run(ctx, a, m, log)

	logger.LogOutcome(p.logger, a.ID, url, string(a.Outcome), a.Filename(), a.Err)
	return a
}

func (p *Pipeline) fail(a *Attempt, err error) {
	a.Outcome = OutcomeFailed
	a.Err = err
}

func (p *Pipeline) run(ctx context.Context, a *Attempt, m *manifest.Manifest, log logger.Logger) {
	if err := p.resolver.EnsureDir(); err != nil {
		p.fail(a, err)
		return
	}

	if p.prober != nil {
		res := p.prober.Probe(ctx, a.URL)
		if res.Conclusive {
			log.DebugWithFields("Probe answered", map[string]interface{}{
				"strategy":     res.Strategy,
				"content_type": res.ContentType,
				"length":       res.Length,
			})
			if !IsImageContentType(res.ContentType) {
				a.Stage = StageProbe
				a.Outcome = OutcomeNotImage
				a.ContentType = res.ContentType
				return
			}
			if res.Length > p.maxBytes {
				a.Stage = StageProbe
				a.Outcome = OutcomeTooLarge
				a.DeclaredLength = res.Length
				return
			}
		}
	}
	if err := ctx.Err(); err != nil {
		p.fail(a, errs.Network(err))
		return
	}

	resp, err := p.client.Get(ctx, a.URL)
	if err != nil {
		p.fail(a, err)
		return
	}
	defer resp.Body.Close()

	a.ContentType = resp.Header.Get("Content-Type")
	if !IsImageContentType(a.ContentType) {
		a.Outcome = OutcomeNotImage
		return
	}

	name := p.resolver.Name(resp.Header.Get("Content-Disposition"), a.URL)
	file, path, err := p.resolver.Create(name)
	if err != nil {
		p.fail(a, err)
		return
	}

	keep := false
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			log.WithError(err).Warn("Failed to close output file")
		}
		if !keep {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.WithError(err).WarnWithFields("Failed to remove partial file", map[string]interface{}{
					"path": path,
				})
			}
		}
	}()

	hash, err := p.stream(resp.Body, file, a)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeTooLarge {
			a.Outcome = OutcomeTooLarge
			a.Err = err
			return
		}
		p.fail(a, err)
		return
	}
	if err := file.Close(); err != nil {
		p.fail(a, errs.New(errs.ErrorTypeFilesystem, "failed to close output file", err))
		return
	}
	a.Hash = hash

	if existing, ok := m.Contains(hash); ok {
		a.Outcome = OutcomeDuplicate
		a.Existing = existing
		return
	}

	// The file is complete; keep it even if the manifest cannot be saved.
	keep = true
	a.Path = path
	if err := m.Record(hash, filepath.Base(path)); err != nil {
		p.fail(a, err)
		return
	}
	if err := p.store.Save(m); err != nil {
		p.fail(a, err)
		return
	}
	a.Outcome = OutcomeStored
}

// stream copies body to w in chunks, hashing as it goes and aborting once
// more than maxBytes have arrived.
func (p *Pipeline) stream(body io.Reader, w io.Writer, a *Attempt) (string, error) {
	h := sha256.New()
	out := io.MultiWriter(w, h)
	buf := make([]byte, p.chunkSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			a.Bytes += int64(n)
			if a.Bytes > p.maxBytes {
				return "", errs.New(errs.ErrorTypeTooLarge,
					fmt.Sprintf("exceeded %d bytes", p.maxBytes), nil)
			}
			if _, err := out.Write(buf[:n]); err != nil {
				return "", errs.New(errs.ErrorTypeFilesystem, "failed to write output file", err)
			}
		}
		if readErr == io.EOF {
			return hex.EncodeToString(h.Sum(nil)), nil
		}
		if readErr != nil {
			if errs.TypeOf(readErr) == errs.ErrorTypeUnknown {
				readErr = errs.Network(readErr)
			}
			return "", readErr
		}
	}
}
