package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BackupTo writes a snapshot of the session database to dstPath with VACUUM INTO.
// An existing file at dstPath is never overwritten.
func (d *DB) BackupTo(ctx context.Context, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return fmt.Errorf("backup target %s already exists", dstPath)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return err
	}
	escaped := strings.ReplaceAll(dstPath, "'", "''")
	if _, err := d.sql.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s';", escaped)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dstPath, err)
	}
	return nil
}
