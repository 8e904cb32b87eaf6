package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/langshake/shake-proof/internal/fetch"
	"github.com/langshake/shake-proof/internal/integrity"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
)

// ModuleValidator fetches one module and verifies it against its embedded
// checksum.
type ModuleValidator struct {
	client    *fetch.Client
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewModuleValidator returns a validator that records every fetch in
// collector.
func NewModuleValidator(client *fetch.Client, collector *metrics.Collector, logger *slog.Logger) *ModuleValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModuleValidator{client: client, collector: collector, logger: logger}
}

// Validate fetches moduleURL and returns the validated module for slot index.
// Failures are recorded on the returned module and in the collector; a
// checksum mismatch only sets a warning.
func (v *ModuleValidator) Validate(ctx context.Context, index int, path, moduleURL string) model.Module {
	mod := model.Module{Index: index, Path: path, URL: moduleURL}

	resp, err := timedGet(ctx, v.client, v.collector, moduleURL)
	if resp != nil {
		mod.StatusCode = resp.StatusCode
	}
	if err != nil {
		mod.Error = classifyFetchError(err, model.ModuleFetchError, moduleURL)
		v.collector.RecordError(moduleURL, mod.Error)
		return mod
	}

	if bErr := v.verify(&mod, resp.Body); bErr != nil {
		mod.Error = bErr
		v.collector.RecordError(moduleURL, bErr)
		return mod
	}

	if mod.Warning != nil {
		v.collector.RecordError(moduleURL, mod.Warning)
		v.logger.Warn("module checksum mismatch",
			"url", moduleURL,
			"declared", mod.DeclaredChecksum,
			"computed", mod.ComputedChecksum,
		)
	}
	return mod
}

// verify fills the checksum and subject fields of mod from body.
func (v *ModuleValidator) verify(mod *model.Module, body []byte) *model.BenchError {
	payload, err := model.ParsePayload(body)
	if err != nil {
		return model.AsBenchError(err, model.ModuleStructureInvalid, mod.URL).WithURL(mod.URL)
	}

	form, ok := payload.(model.ArrayForm)
	switch {
	case !ok:
		return model.NewBenchError(model.ModuleStructureInvalid, mod.URL,
			"module is a single object, want an array ending in a checksum object", nil)
	case !form.HasChecksum:
		return model.NewBenchError(model.ModuleStructureInvalid, mod.URL,
			"module array does not end in a checksum object", nil)
	case len(form.Records) == 0:
		return model.NewBenchError(model.ModuleStructureInvalid, mod.URL,
			"module has no records before its checksum", nil)
	}

	computed, err := integrity.ComputeChecksum(form.Records)
	if err != nil {
		return model.NewBenchError(model.ModuleStructureInvalid, mod.URL, "", err)
	}

	subject, err := SubjectURL(form.Records)
	if err != nil {
		return model.AsBenchError(err, model.ModuleSubjectUrlInconsistent, mod.URL).WithURL(mod.URL)
	}

	mod.Records = form.Records
	mod.DeclaredChecksum = form.Checksum
	mod.ComputedChecksum = computed
	mod.ChecksumValid = computed == form.Checksum
	mod.CanonicalSubjectURL = subject
	if !mod.ChecksumValid {
		mod.Warning = model.NewBenchError(model.ModuleChecksumMismatch, mod.URL,
			fmt.Sprintf("declared %s, computed %s", form.Checksum, computed), nil)
	}
	return nil
}

// timedGet performs a GET and records it as one request in collector,
// whether or not it succeeded.
func timedGet(ctx context.Context, client *fetch.Client, collector *metrics.Collector, target string) (*fetch.Response, error) {
	start := time.Now()
	resp, err := client.Get(ctx, target)

	rec := metrics.RequestRecord{URL: target, Method: http.MethodGet, Start: start, End: time.Now()}
	if resp != nil {
		rec.Start, rec.End = resp.Start, resp.End
		rec.BytesIn, rec.BytesOut = resp.BytesIn, resp.BytesOut
		rec.StatusCode = resp.StatusCode
	}
	collector.RecordRequest(rec)
	return resp, err
}

// classifyFetchError maps a fetch failure to kind, or RequestTimeout when
// the final attempt ran out of time.
func classifyFetchError(err error, kind model.ErrorKind, target string) *model.BenchError {
	if fetch.IsTimeout(err) {
		kind = model.RequestTimeout
	}
	return model.NewBenchError(kind, target, "", err)
}
