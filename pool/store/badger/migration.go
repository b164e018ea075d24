package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
)

const dbVersion = 1

var versionKey = []byte("ep:version")

var migrations = [dbVersion]migrationStep{
	// Version 0 -> 1 (initial layout)
	func(txn *badger.Txn) error {
		if err := checkVersion(txn, 0); err != nil {
			return err
		}
		return setVersion(txn, 1)
	},
}

// migrationStep is called within an update transaction. It should update the
// database state and version to the next version.
type migrationStep func(txn *badger.Txn) error

// MigrateLatest converts the database to the latest version that we know of.
func MigrateLatest(db *badger.DB, id string) error {
	return db.Update(func(txn *badger.Txn) error {
		oldVersion, err := getVersion(txn)
		if err != nil {
			return MigrationError{oldVersion, dbVersion, id, err}
		}
		if oldVersion == dbVersion {
			return nil
		}
		if oldVersion > dbVersion {
			err := errors.New("database is newer than the supported version")
			return MigrationError{oldVersion, dbVersion, id, err}
		}

		for v := oldVersion; v < dbVersion; {
			if err := migrations[v](txn); err != nil {
				return MigrationError{v, dbVersion, id, err}
			}
			nextVersion, err := getVersion(txn)
			if err != nil {
				return MigrationError{v, dbVersion, id, err}
			}
			if nextVersion <= v {
				err = errors.New("migration failed to increment version")
				return MigrationError{v, dbVersion, id, err}
			}
			v = nextVersion
		}
		return nil
	})
}

func checkVersion(txn *badger.Txn, assertVersion int) error {
	version, err := getVersion(txn)
	if err != nil {
		return err
	}
	if version != assertVersion {
		return errors.New("wrong version for migration")
	}
	return nil
}

func getVersion(txn *badger.Txn) (int, error) {
	var version int
	if err := getItem(txn, versionKey, &version); err != nil && err != badger.ErrKeyNotFound {
		return version, err
	}
	return version, nil
}

func setVersion(txn *badger.Txn, version int) error {
	return setItem(txn, versionKey, &version)
}

// MigrationError is returned when the database is opened with an outdated
// version and migration fails.
type MigrationError struct {
	OldVersion int
	NewVersion int
	Path       string
	Cause      error
}

func (err MigrationError) Error() string {
	return fmt.Sprintf("badger database migration error: failed to migrate from version %d to %d at path %q: %s", err.OldVersion, err.NewVersion, err.Path, err.Cause)
}
