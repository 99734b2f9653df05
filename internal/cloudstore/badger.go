// ABOUTME: Embedded ledger backend on BadgerDB implementing ledger.ItemStore and links.Store.
// ABOUTME: Keys are prefix-structured so a patient's items and a doctor's links are range scans.
package cloudstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/healthlink/internal/ledger"
	"github.com/harperreed/healthlink/internal/links"
)

// Badger stores the ledger in an embedded key-value database.
type Badger struct {
	db *badger.DB
}

var (
	_ ledger.ItemStore = (*Badger)(nil)
	_ links.Store      = (*Badger)(nil)
)

// OpenBadger opens or creates a ledger database in dir.
func OpenBadger(dir string) (*Badger, error) {
	return openBadger(badger.DefaultOptions(dir))
}

// OpenBadgerInMemory opens a ledger that lives only in memory.
func OpenBadgerInMemory() (*Badger, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badger.Options) (*Badger, error) {
	opts = opts.
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func seg(s string) string {
	return url.PathEscape(s)
}

func itemPrefix(patientID string) []byte {
	return []byte("item/" + seg(patientID) + "/")
}

func linkKey(patientID, doctorID string) []byte {
	return []byte("link/" + seg(patientID) + "/" + seg(doctorID))
}

func linkDocKey(doctorID, patientID string) []byte {
	return []byte("linkdoc/" + seg(doctorID) + "/" + seg(patientID))
}

func consentPrefix(patientID string) []byte {
	return []byte("consent/" + seg(patientID) + "/")
}

func consentKey(c links.Consent) []byte {
	// Zero padding keeps lexical order equal to time order.
	return append(consentPrefix(c.PatientID), []byte(fmt.Sprintf("%020d", c.ConsentedAt.UnixNano()))...)
}

func profileKey(userID string) []byte {
	return []byte("profile/" + seg(userID))
}

// PutItems blind-writes items; a key that exists is overwritten.
func (b *Badger) PutItems(ctx context.Context, items []ledger.Item) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode item %s: %w", it.SortKey, err)
		}
		key := append(itemPrefix(it.PatientID), []byte(it.SortKey)...)
		if err := wb.Set(key, val); err != nil {
			return fmt.Errorf("put item %s: %w", it.SortKey, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush items: %w", err)
	}
	return nil
}

// ListItems returns up to limit items of a patient in sort key order.
func (b *Badger) ListItems(ctx context.Context, patientID string, limit int) ([]ledger.Item, error) {
	var out []ledger.Item
	err := scanPrefix(ctx, b.db, itemPrefix(patientID), limit, func(val []byte) error {
		var it ledger.Item
		if err := json.Unmarshal(val, &it); err != nil {
			return fmt.Errorf("decode item: %w", err)
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

// PutLink writes the link and its doctor index entry in one transaction.
func (b *Badger) PutLink(ctx context.Context, l links.Link) error {
	val, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(linkKey(l.PatientID, l.DoctorID), val); err != nil {
			return err
		}
		return txn.Set(linkDocKey(l.DoctorID, l.PatientID), val)
	})
}

// GetLink reads one link.
func (b *Badger) GetLink(ctx context.Context, patientID, doctorID string) (*links.Link, error) {
	var l links.Link
	if err := getJSON(b.db, linkKey(patientID, doctorID), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// LinksForDoctor scans the doctor index.
func (b *Badger) LinksForDoctor(ctx context.Context, doctorID string) ([]links.Link, error) {
	return b.scanLinks(ctx, []byte("linkdoc/"+seg(doctorID)+"/"))
}

// LinksForPatient scans the patient's links.
func (b *Badger) LinksForPatient(ctx context.Context, patientID string) ([]links.Link, error) {
	return b.scanLinks(ctx, []byte("link/"+seg(patientID)+"/"))
}

func (b *Badger) scanLinks(ctx context.Context, prefix []byte) ([]links.Link, error) {
	var out []links.Link
	err := scanPrefix(ctx, b.db, prefix, 0, func(val []byte) error {
		var l links.Link
		if err := json.Unmarshal(val, &l); err != nil {
			return fmt.Errorf("decode link: %w", err)
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

// AppendConsent writes c only if its key is free.
func (b *Badger) AppendConsent(ctx context.Context, c links.Consent) error {
	val, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode consent: %w", err)
	}
	key := consentKey(c)
	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return links.ErrConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, val)
	})
	if errors.Is(err, badger.ErrConflict) {
		return links.ErrConflict
	}
	return err
}

// ListConsents returns a patient's consents oldest first.
func (b *Badger) ListConsents(ctx context.Context, patientID string) ([]links.Consent, error) {
	var out []links.Consent
	err := scanPrefix(ctx, b.db, consentPrefix(patientID), 0, func(val []byte) error {
		var c links.Consent
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("decode consent: %w", err)
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// PutProfile overwrites a profile.
func (b *Badger) PutProfile(ctx context.Context, p links.Profile) error {
	val, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(p.UserID), val)
	})
}

// GetProfile reads a profile.
func (b *Badger) GetProfile(ctx context.Context, userID string) (*links.Profile, error) {
	var p links.Profile
	if err := getJSON(b.db, profileKey(userID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func getJSON(db *badger.DB, key []byte, dst any) error {
	return db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return links.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
}

func scanPrefix(ctx context.Context, db *badger.DB, prefix []byte, limit int, fn func(val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && n >= limit {
				return nil
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
			n++
		}
		return nil
	})
}
