package restservice

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/solestate/estated/internal/interface/rest/permissions"
	"github.com/solestate/estated/pkg/macaroons"
	"gopkg.in/macaroon-bakery.v2/bakery"
)

const (
	macaroonsLocation = "estated"
	macaroonsDbDir    = "macaroons.db"

	MacaroonsDir         = "macaroons"
	AdminMacaroonFile    = "admin.macaroon"
	ReadOnlyMacaroonFile = "readonly.macaroon"
)

var macFiles = map[string][]bakery.Op{
	AdminMacaroonFile:    permissions.AdminPermissions(),
	ReadOnlyMacaroonFile: permissions.ReadOnlyPermissions(),
}

func newMacaroonService(datadir string) (*macaroons.Service, error) {
	store, err := macaroons.NewRootKeyStorage(filepath.Join(datadir, macaroonsDbDir))
	if err != nil {
		return nil, err
	}
	svc, err := macaroons.NewService(store, macaroonsLocation)
	if err != nil {
		// nolint:all
		store.Close()
		return nil, err
	}
	return svc, nil
}

// genMacaroons writes the macaroon files missing from dir. It reports whether
// any file was created.
func genMacaroons(ctx context.Context, svc *macaroons.Service, dir string) (bool, error) {
	toGenerate := make(map[string][]bakery.Op)
	for filename, ops := range macFiles {
		if pathExists(filepath.Join(dir, filename)) {
			continue
		}
		toGenerate[filename] = ops
	}
	if len(toGenerate) == 0 {
		return false, nil
	}

	if err := os.MkdirAll(dir, os.ModeDir|0o755); err != nil {
		return false, err
	}

	for filename, ops := range toGenerate {
		mac, err := svc.BakeMacaroon(ctx, ops)
		if err != nil {
			return false, err
		}
		path := filepath.Join(dir, filename)
		perms := fs.FileMode(0o644)
		if filename == AdminMacaroonFile {
			perms = 0o600
		}
		if err := os.WriteFile(path, mac, perms); err != nil {
			// nolint:all
			os.Remove(path)
			return false, err
		}
	}
	return true, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
