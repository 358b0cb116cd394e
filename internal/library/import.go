package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photo-catalog/internal/filetype"
	"photo-catalog/internal/fsutil"
	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
)

// ImportOptions controls an import job.
type ImportOptions struct {
	// FileTypes restricts which variant kinds are brought in. Empty
	// imports every variant file.
	FileTypes []filetype.Kind

	// PreferredType, when set, is written as the ActiveType of each
	// imported photo.
	PreferredType filetype.Kind

	// Rename maps a source base name to a destination base name.
	// Nil, or an empty result, keeps the source base.
	Rename func(base string) string

	// Properties are stamped into every imported photo's sidecar.
	Properties map[photo.Key]photo.Value

	// DeleteSource removes each source file after its copy is durable.
	DeleteSource bool
}

// ImportResult is the outcome of one source file.
type ImportResult struct {
	Source string
	Dest   string // library-relative; empty on failure
	Err    error
}

// ImportJob tracks one asynchronous import batch.
type ImportJob struct {
	id string

	mu      sync.Mutex
	results []ImportResult

	done chan struct{}
}

// ID returns the job's unique identifier.
func (j *ImportJob) ID() string { return j.id }

// Wait blocks until the job has finished.
func (j *ImportJob) Wait() { <-j.done }

// Finished reports whether the job has completed.
func (j *ImportJob) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Results returns a copy of the per-item outcomes recorded so far.
func (j *ImportJob) Results() []ImportResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ImportResult, len(j.results))
	copy(out, j.results)
	return out
}

func (j *ImportJob) record(r ImportResult) {
	j.mu.Lock()
	j.results = append(j.results, r)
	j.mu.Unlock()
}

// ImportImages copies external files into a library directory as an
// asynchronous job. Sources sharing a base name are grouped so a
// JPEG+RAW pair lands under one destination base. Items fail
// individually; one bad source never aborts the batch.
func (l *Library) ImportImages(sources []string, destDir string, opts ImportOptions) *ImportJob {
	job := &ImportJob{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}

	l.jobsMu.Lock()
	l.jobs[job.id] = job
	l.jobsMu.Unlock()

	l.imports.Add(1)
	metrics.ImportJobsTotal.Inc()
	metrics.ImportJobsActive.Inc()

	go l.runImport(job, sources, destDir, opts)
	return job
}

func (l *Library) runImport(job *ImportJob, sources []string, destDir string, opts ImportOptions) {
	start := time.Now()
	defer func() {
		metrics.ImportJobDuration.Observe(time.Since(start).Seconds())
		metrics.ImportJobsActive.Dec()

		l.jobsMu.Lock()
		delete(l.jobs, job.id)
		l.jobsMu.Unlock()

		close(job.done)
		l.imports.Done()
	}()

	for _, group := range groupSources(sources) {
		l.importGroup(job, group, destDir, opts)
	}

	if err := l.catalog.Persist(); err != nil {
		logging.Error("failed to persist catalog after import %s: %v", job.id, err)
	}
	l.notifyChanged(destDir)
}

// sourceGroup is the files of one logical photo at their origin.
type sourceGroup struct {
	base  string
	files []string // absolute source paths
}

func groupSources(sources []string) []sourceGroup {
	byBase := make(map[string]*sourceGroup)
	for _, src := range sources {
		base := filetype.BaseName(src)
		g, ok := byBase[base]
		if !ok {
			g = &sourceGroup{base: base}
			byBase[base] = g
		}
		g.files = append(g.files, src)
	}

	groups := make([]sourceGroup, 0, len(byBase))
	for _, g := range byBase {
		sort.Strings(g.files)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].base < groups[j].base })
	return groups
}

func (l *Library) importGroup(job *ImportJob, group sourceGroup, destDir string, opts ImportOptions) {
	destBase := group.base
	if opts.Rename != nil {
		if renamed := opts.Rename(group.base); renamed != "" {
			destBase = renamed
		}
	}
	destBase = l.freeImportBase(destDir, destBase, group.files)

	imported := false
	for _, src := range group.files {
		kind := filetype.KindOf(src)
		if !importableKind(kind, opts.FileTypes) {
			continue
		}

		destRel := path.Join(destDir, destBase+strings.ToLower(filepath.Ext(src)))
		if err := l.importFile(src, destRel, opts.DeleteSource); err != nil {
			job.record(ImportResult{Source: src, Err: err})
			metrics.ImportItemsTotal.WithLabelValues("error").Inc()
			continue
		}
		l.catalog.IDFor(destRel)
		job.record(ImportResult{Source: src, Dest: destRel})
		metrics.ImportItemsTotal.WithLabelValues("success").Inc()
		imported = true
	}

	if imported && (len(opts.Properties) > 0 || opts.PreferredType != "") {
		l.writeImportSidecar(destDir, destBase, opts)
	}
}

func importableKind(kind filetype.Kind, allowed []filetype.Kind) bool {
	if kind != filetype.KindJPEG && kind != filetype.KindRAW {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// freeImportBase picks a destination base free for every source
// extension in the group.
func (l *Library) freeImportBase(destDir, base string, files []string) string {
	exts := make([]string, 0, len(files)+1)
	for _, f := range files {
		exts = append(exts, strings.ToLower(filepath.Ext(f)))
	}
	exts = append(exts, ".json")

	for n := 0; ; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		free := true
		for _, ext := range exts {
			if exists, _ := l.store.Stat(path.Join(destDir, candidate+ext)); exists {
				free = false
				break
			}
		}
		if free {
			return candidate
		}
	}
}

func (l *Library) importFile(srcAbs, destRel string, deleteSource bool) error {
	destAbs, err := l.store.Abs(destRel)
	if err != nil {
		return err
	}
	if err := fsutil.CopyFileAtomic(srcAbs, destAbs, fsutil.DefaultRetryConfig()); err != nil {
		return err
	}
	if deleteSource {
		// The copy is durable; removing the source cannot lose data.
		if err := os.Remove(srcAbs); err != nil {
			logging.Warn("imported %s but failed to remove source: %v", srcAbs, err)
		}
	}
	return nil
}

func (l *Library) writeImportSidecar(destDir, destBase string, opts ImportOptions) {
	props := make(map[photo.Key]photo.Value, len(opts.Properties)+1)
	for k, v := range opts.Properties {
		props[k] = v
	}
	if opts.PreferredType == filetype.KindRAW {
		props[photo.KeyActiveType] = photo.String("raw")
	} else if opts.PreferredType == filetype.KindJPEG {
		props[photo.KeyActiveType] = photo.String("jpeg")
	}

	data, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		logging.Error("failed to encode import sidecar for %s: %v", destBase, err)
		return
	}
	data = append(data, '\n')

	rel := path.Join(destDir, filetype.SidecarName(destBase))
	if err := l.store.WriteFile(rel, data); err != nil {
		logging.Error("failed to write import sidecar %s: %v", rel, err)
	}
}

// ActiveImports returns the ids of import jobs still in flight.
func (l *Library) ActiveImports() []string {
	l.jobsMu.Lock()
	defer l.jobsMu.Unlock()
	ids := make([]string, 0, len(l.jobs))
	for id := range l.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WaitForImportsToComplete blocks until every outstanding import job
// has finished.
func (l *Library) WaitForImportsToComplete() {
	l.imports.Wait()
}
