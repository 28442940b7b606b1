// Package identity works out the device id used for MQTT topics, the MQTT
// client id and the X-Device-ID header.
//
// Resolution order:
//  1. An id set explicitly in configuration
//  2. An id persisted in the local store by an earlier run
//  3. The first non-loopback hardware (MAC) address, as lowercase hex
//  4. A generated 12-hex-digit surrogate
//
// Ids from steps 3 and 4 are persisted when a store is available, so the
// device keeps its identity if a network interface is later added or removed.
package identity

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/bosshub/bosshub-go/internal/infrastructure/database"
)

// metaKey is the device_meta key holding the persisted id.
const metaKey = "device_id"

// Source says where an id came from.
type Source string

// Identity sources.
const (
	SourceConfig    Source = "config"
	SourceStore     Source = "store"
	SourceHardware  Source = "hardware"
	SourceGenerated Source = "generated"
)

// MetaStore persists the id. *database.DB implements it.
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Identity is a resolved device id.
type Identity struct {
	ID     string
	Source Source
}

// Resolver resolves the device id.
type Resolver struct {
	// Store may be nil, in which case nothing is persisted.
	Store MetaStore

	// interfaces lists network interfaces. Replaced in tests.
	interfaces func() ([]net.Interface, error)
}

// NewResolver creates a Resolver backed by store, which may be nil.
func NewResolver(store MetaStore) *Resolver {
	return &Resolver{Store: store, interfaces: net.Interfaces}
}

// Resolve returns the device id. explicit wins when non-empty.
//
// A store read or write failure is returned, together with the best id
// that could be worked out without it.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (Identity, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return Identity{ID: explicit, Source: SourceConfig}, nil
	}

	var storeErr error
	if r.Store != nil {
		id, err := r.Store.GetMeta(ctx, metaKey)
		switch {
		case err == nil && id != "":
			return Identity{ID: id, Source: SourceStore}, nil
		case err != nil && !errors.Is(err, database.ErrNotFound):
			storeErr = fmt.Errorf("reading persisted device id: %w", err)
		}
	}

	ident := Identity{ID: r.hardwareID(), Source: SourceHardware}
	if ident.ID == "" {
		ident = Identity{ID: Generate(), Source: SourceGenerated}
	}

	if r.Store != nil && storeErr == nil {
		if err := r.Store.SetMeta(ctx, metaKey, ident.ID); err != nil {
			storeErr = fmt.Errorf("persisting device id: %w", err)
		}
	}
	return ident, storeErr
}

// hardwareID returns the hex MAC of the first usable interface, or "".
func (r *Resolver) hardwareID() string {
	list := r.interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) < 6 {
			continue
		}
		if isZero(iface.HardwareAddr) {
			continue
		}
		return hex.EncodeToString(iface.HardwareAddr)
	}
	return ""
}

func isZero(addr net.HardwareAddr) bool {
	for _, b := range addr {
		if b != 0 {
			return false
		}
	}
	return true
}

// Generate returns a random 12-hex-digit id, the same shape as a MAC-derived one.
func Generate() string {
	id := uuid.New()
	return hex.EncodeToString(id[:6])
}
