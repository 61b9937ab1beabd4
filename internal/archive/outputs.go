package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/models"
)

// ErrorLogKey is the JSON-lines log of failed extractions.
const ErrorLogKey = "extract_errors.jsonl"

// Keys returns the archive keys used for a document's outputs.
func Keys(documentID string) (jsonKey, txtKey string) {
	dir := SafeName(documentID)
	return dir + "/sections.json", dir + "/sections.txt"
}

// SourceKey returns the key the source file of documentID is kept under.
func SourceKey(documentID, filename string) string {
	return SafeName(documentID) + "/source" + strings.ToLower(path.Ext(filename))
}

// Outputs writes per-document extraction outputs to an Archive. A nil archive makes
// every method a no-op.
type Outputs struct {
	archive    Archive
	keepSource bool
	logger     *zap.Logger
	now        func() time.Time
}

// OutputsOption configures Outputs.
type OutputsOption func(*Outputs)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) OutputsOption {
	return func(o *Outputs) {
		o.logger = l
	}
}

// WithKeepSource also stores the uploaded source file.
func WithKeepSource(keep bool) OutputsOption {
	return func(o *Outputs) {
		o.keepSource = keep
	}
}

// NewOutputs wraps a (possibly nil) archive.
func NewOutputs(a Archive, opts ...OutputsOption) *Outputs {
	o := &Outputs{archive: a, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enabled reports whether outputs are written anywhere.
func (o *Outputs) Enabled() bool {
	return o != nil && o.archive != nil
}

// Archive returns the underlying archive, or nil.
func (o *Outputs) Archive() Archive {
	if o == nil {
		return nil
	}
	return o.archive
}

// Write stores the extraction as JSON and TXT, plus the source when configured.
// Every output is attempted; failures are combined.
func (o *Outputs) Write(ctx context.Context, e *models.Extraction, filename string, source []byte) error {
	if !o.Enabled() {
		return nil
	}
	jsonKey, txtKey := Keys(e.DocumentID)
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	err = multierr.Append(err, o.archive.Put(ctx, jsonKey, bytes.NewReader(data), ContentType(jsonKey)))
	if e.Sections != nil {
		txt := RenderText(e.Sections)
		err = multierr.Append(err, o.archive.Put(ctx, txtKey, strings.NewReader(txt), ContentType(txtKey)))
	}
	if o.keepSource && len(source) > 0 {
		key := SourceKey(e.DocumentID, filename)
		err = multierr.Append(err, o.archive.Put(ctx, key, bytes.NewReader(source), ContentType(key)))
	}
	if err != nil {
		o.logger.Error("archive write failed", zap.String("doc_id", e.DocumentID), zap.Error(err))
		return err
	}
	o.logger.Debug("outputs archived", zap.String("doc_id", e.DocumentID), zap.String("json", jsonKey))
	return nil
}

// Remove deletes every output written for documentID.
func (o *Outputs) Remove(ctx context.Context, documentID, filename string) error {
	if !o.Enabled() {
		return nil
	}
	jsonKey, txtKey := Keys(documentID)
	err := multierr.Combine(
		o.archive.Delete(ctx, jsonKey),
		o.archive.Delete(ctx, txtKey),
	)
	if filename != "" {
		err = multierr.Append(err, o.archive.Delete(ctx, SourceKey(documentID, filename)))
	}
	return err
}

// ErrorEntry is one line of the error log.
type ErrorEntry struct {
	Filename  string    `json:"filename"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// LogError appends a failed extraction to the error log.
func (o *Outputs) LogError(ctx context.Context, filename string, cause error) error {
	if !o.Enabled() || cause == nil {
		return nil
	}
	line, err := json.Marshal(ErrorEntry{Filename: filename, Error: cause.Error(), Timestamp: o.now().UTC()})
	if err != nil {
		return err
	}
	return o.archive.Append(ctx, ErrorLogKey, append(line, '\n'))
}
