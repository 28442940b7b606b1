package identity

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosshub/bosshub-go/internal/infrastructure/database"
	"github.com/bosshub/bosshub-go/migrations"
)

type memStore struct {
	values  map[string]string
	getErr  error
	setErr  error
	setCall int
}

func newMemStore() *memStore { return &memStore{values: make(map[string]string)} }

func (m *memStore) GetMeta(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", database.ErrNotFound
	}
	return v, nil
}

func (m *memStore) SetMeta(_ context.Context, key, value string) error {
	m.setCall++
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func ifaces(list ...net.Interface) func() ([]net.Interface, error) {
	return func() ([]net.Interface, error) { return list, nil }
}

var (
	loopback = net.Interface{Name: "lo", Flags: net.FlagLoopback, HardwareAddr: net.HardwareAddr{0, 0, 0, 0, 0, 1}}
	zeroMAC  = net.Interface{Name: "dummy0", HardwareAddr: net.HardwareAddr{0, 0, 0, 0, 0, 0}}
	eth0     = net.Interface{Name: "eth0", HardwareAddr: net.HardwareAddr{0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6}}
	wlan0    = net.Interface{Name: "wlan0", HardwareAddr: net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}}
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		stored     string
		interfaces []net.Interface
		wantID     string
		wantSource Source
	}{
		{name: "explicit wins", explicit: " vending-01 ", stored: "old", interfaces: []net.Interface{eth0}, wantID: "vending-01", wantSource: SourceConfig},
		{name: "stored beats hardware", stored: "cafebabe0001", interfaces: []net.Interface{eth0}, wantID: "cafebabe0001", wantSource: SourceStore},
		{name: "first usable mac", interfaces: []net.Interface{loopback, zeroMAC, eth0, wlan0}, wantID: "a1b2c3d4e5f6", wantSource: SourceHardware},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.stored != "" {
				store.values[metaKey] = tt.stored
			}
			r := NewResolver(store)
			r.interfaces = ifaces(tt.interfaces...)

			got, err := r.Resolve(context.Background(), tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestResolve_PersistsDerivedID(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store)
	r.interfaces = ifaces(eth0)

	first, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, SourceHardware, first.Source)
	assert.Equal(t, "a1b2c3d4e5f6", store.values[metaKey])

	// The NIC changes; the persisted id sticks.
	r.interfaces = ifaces(wlan0)
	second, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, SourceStore, second.Source)
}

func TestResolve_GeneratedWithoutHardware(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store)
	r.interfaces = ifaces(loopback)

	got, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, got.Source)
	assert.Len(t, got.ID, 12)
	assert.Equal(t, got.ID, store.values[metaKey])
}

func TestResolve_InterfaceError(t *testing.T) {
	r := NewResolver(nil)
	r.interfaces = func() ([]net.Interface, error) { return nil, errors.New("no netlink") }

	got, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, got.Source)
}

func TestResolve_StoreErrors(t *testing.T) {
	t.Run("read error skips persisting", func(t *testing.T) {
		store := newMemStore()
		store.getErr = errors.New("locked")
		r := NewResolver(store)
		r.interfaces = ifaces(eth0)

		got, err := r.Resolve(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, "a1b2c3d4e5f6", got.ID)
		assert.Zero(t, store.setCall)
	})

	t.Run("write error", func(t *testing.T) {
		store := newMemStore()
		store.setErr = errors.New("read-only")
		r := NewResolver(store)
		r.interfaces = ifaces(eth0)

		got, err := r.Resolve(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, "a1b2c3d4e5f6", got.ID)
	})
}

func TestResolve_WithSQLiteStore(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(context.Background(), migrations.FS))

	r := NewResolver(db)
	r.interfaces = ifaces()

	first, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, SourceGenerated, first.Source)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, SourceStore, second.Source)
}

func TestGenerate(t *testing.T) {
	a, b := Generate(), Generate()
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
}
