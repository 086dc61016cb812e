// =============================================================================
// fetch.go - File Download with Progress
// =============================================================================
//
// 'fetch' downloads files one at a time. Each file is moved a chunk per
// loop turn, so Ctrl-C is noticed between chunks: the transfer is cancelled
// on the logger and the partial file is deleted.
//
// On a terminal a single progress line covers the whole batch:
//
//	LOGGER03.CSV          [##########.........]  52.4%
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// errFetchCancelled is returned when the user interrupts a fetch.
var errFetchCancelled = errors.New("fetch cancelled")

// nameColumn is the width of the file name before the progress bar.
const nameColumn = 20

// fetchTarget is one file to download.
type fetchTarget struct {
	name string
	size int64
}

func cmdFetch(sh *shell, cmd command) error {
	entries, err := sh.client.ListFiles(sh.ctx)
	if err != nil {
		return err
	}
	activeNum, err := sh.client.ActiveFileNumber(sh.ctx)
	if err != nil {
		return err
	}

	targets, err := selectTargets(sh, entries, loggerprotocol.ActiveFileName(activeNum), cmd)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(sh.out, "Nothing to fetch.")
		return nil
	}

	if err := os.MkdirAll(sh.dir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	var total int64
	for _, t := range targets {
		total += t.size
	}

	var done int64
	var failed []string
	for _, t := range targets {
		err := sh.fetchOne(t, &done, total)
		if errors.Is(err, errFetchCancelled) {
			return err
		}
		if err != nil {
			fmt.Fprintf(sh.errOut, "Error: %s: %v\n", t.name, err)
			failed = append(failed, t.name)
			if connectionLost(err) {
				return err
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%s failed: %s", plural(len(failed), "file"), strings.Join(failed, ", "))
	}
	fmt.Fprintf(sh.out, "Fetched %s, %s into %s\n", plural(len(targets), "file"), formatSize(total), sh.dir)
	return nil
}

// selectTargets resolves the names in cmd against the listing. With no
// names every file except the active one is chosen.
func selectTargets(sh *shell, entries []loggerprotocol.FileEntry, active string, cmd command) ([]fetchTarget, error) {
	var targets []fetchTarget

	if len(cmd.args) == 0 {
		for _, e := range entries {
			if !e.IsFile() || (e.Name == active && !cmd.force) {
				continue
			}
			targets = append(targets, fetchTarget{name: e.Name, size: *e.Size})
		}
		return targets, nil
	}

	byName := make(map[string]loggerprotocol.FileEntry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}
	for _, name := range cmd.args {
		e, ok := byName[name]
		switch {
		case !ok:
			return nil, fmt.Errorf("no such file on the logger: %s", name)
		case !e.IsFile():
			return nil, fmt.Errorf("%s is a directory", name)
		case name == active && !cmd.force:
			fmt.Fprintf(sh.errOut, "Skipping %s: the logger is writing to it (use --force)\n", name)
			continue
		}
		targets = append(targets, fetchTarget{name: e.Name, size: *e.Size})
	}
	return targets, nil
}

// fetchOne downloads one file, adding the bytes received to done.
func (sh *shell) fetchOne(t fetchTarget, done *int64, total int64) error {
	c := sh.client
	sh.interrupted.Store(false)
	sh.fetching.Store(true)
	defer sh.fetching.Store(false)

	if err := c.StartDownload(sh.ctx, t.name); err != nil {
		return err
	}
	sh.drawProgress(t.name, *done, total)

	for c.DownloadState() == loggerprotocol.DownloadTransferring {
		if sh.interrupted.Load() {
			sh.clearProgress()
			return sh.abortFetch(t.name, errFetchCancelled)
		}
		_, n, err := c.DownloadChunk(sh.ctx)
		*done += int64(n)
		if err != nil {
			sh.clearProgress()
			if c.DownloadState() == loggerprotocol.DownloadTransferring {
				return sh.abortFetch(t.name, err)
			}
			return err
		}
		if n > 0 {
			sh.drawProgress(t.name, *done, total)
		}
	}

	sh.clearProgress()
	note := ""
	if c.Config().DeleteAfterDownload {
		note = sh.colors.dim.Sprint("  (removed from logger)")
	}
	fmt.Fprintf(sh.out, "  %-*s %10s  %s%s\n", nameColumn, t.name, formatSize(t.size), sh.colors.good.Sprint("ok"), note)
	return nil
}

// abortFetch cancels the transfer and deletes the partial file. cause is
// returned, joined with any cleanup failure.
func (sh *shell) abortFetch(name string, cause error) error {
	errs := []error{cause}
	if err := sh.client.AbortDownload(sh.ctx); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(filepath.Join(sh.dir, filepath.Base(name))); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove partial file: %w", err))
	}
	return errors.Join(errs...)
}

func (sh *shell) drawProgress(name string, done, total int64) {
	if !sh.progress {
		return
	}
	bar := progressBar(done, total, sh.width()-nameColumn-2)
	fmt.Fprintf(sh.out, "\r%-*s %s", nameColumn, name, bar)
}

func (sh *shell) clearProgress() {
	if !sh.progress {
		return
	}
	fmt.Fprintf(sh.out, "\r%s\r", strings.Repeat(" ", max(sh.width()-1, 0)))
}
