// Package backup archives the LabTrack audit database, and optionally its
// config file, as tar.gz and restores such archives.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrExists is returned by Restore when a target file exists and force is
// off.
var ErrExists = errors.New("file already exists")

// Backup writes a tar.gz archive holding the database at dbPath and, when
// configPath names an existing file, the config. The WAL is checkpointed
// first so the copied file is complete.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (err error) {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database file not found: %w", err)
	}
	if err := checkpointWAL(ctx, dbPath); err != nil {
		return fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outputPath)
		}
	}()

	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	if err := addFile(tw, dbPath); err != nil {
		return fmt.Errorf("adding database to archive: %w", err)
	}
	if configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			if err := addFile(tw, configPath); err != nil {
				return fmt.Errorf("adding config to archive: %w", err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}

// Restore extracts archive into dir and returns the paths it wrote. Entries
// that would land outside dir are rejected.
func Restore(ctx context.Context, archive, dir string, force bool) ([]string, error) {
	in, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	var written []string
	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(filepath.Clean(hdr.Name))
		if name != hdr.Name || name == "." || name == ".." {
			return written, fmt.Errorf("unsafe archive entry %q", hdr.Name)
		}
		target := filepath.Join(dir, name)
		if err := extract(tr, target, hdr.FileInfo().Mode().Perm(), force); err != nil {
			return written, err
		}
		written = append(written, target)
	}
}

func extract(r io.Reader, target string, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(target, flags, perm)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w (use --force to overwrite)", target, ErrExists)
	}
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
