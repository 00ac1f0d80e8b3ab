package roster

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/chrolicious/hoolgg-roster/internal/provider"
	"github.com/chrolicious/hoolgg-roster/internal/reconcile"
)

type fakeProvider struct {
	mu sync.Mutex

	tokenErr   error
	tokenCalls int
	creds      []provider.Credentials
	expiry     time.Time

	equipment    map[string]*reconcile.EquipmentSnapshot
	equipmentErr map[string]error
	profile      *reconcile.Profile
	profileErr   error
	media        *reconcile.Media
	mediaErr     error
	stats        map[string]any
	statsErr     error
	items        map[int]*reconcile.Media
}

var _ provider.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		expiry:       fixedNow.Add(time.Hour),
		equipment:    map[string]*reconcile.EquipmentSnapshot{},
		equipmentErr: map[string]error{},
		items:        map[int]*reconcile.Media{},
	}
}

func (f *fakeProvider) Token(_ context.Context, creds provider.Credentials) (*provider.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	f.creds = append(f.creds, creds)
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	if !creds.Configured() {
		return nil, &provider.Error{Fetch: provider.FetchToken, Message: "no API credentials configured"}
	}
	return &provider.Token{AccessToken: "token-" + creds.ClientID, Expiry: f.expiry}, nil
}

func (f *fakeProvider) Equipment(_ context.Context, _ provider.Session, _, name string) (*reconcile.EquipmentSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.equipmentErr[name]; err != nil {
		return nil, err
	}
	snap, ok := f.equipment[name]
	if !ok {
		return nil, &provider.Error{Fetch: provider.FetchEquipment, StatusCode: http.StatusNotFound, Message: "API error: 404"}
	}
	return snap, nil
}

func (f *fakeProvider) Profile(context.Context, provider.Session, string, string) (*reconcile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, f.profileErr
}

func (f *fakeProvider) Media(context.Context, provider.Session, string, string) (*reconcile.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.media, f.mediaErr
}

func (f *fakeProvider) Statistics(context.Context, provider.Session, string, string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeProvider) ItemMedia(_ context.Context, _ provider.Session, itemID int) (*reconcile.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[itemID]
	if !ok {
		return nil, &provider.Error{Fetch: provider.FetchItemMedia, StatusCode: http.StatusNotFound, Message: "API error: 404"}
	}
	return m, nil
}

func twoHanderSnapshot(level int) *reconcile.EquipmentSnapshot {
	return &reconcile.EquipmentSnapshot{EquippedItems: []reconcile.EquippedItem{
		{
			Slot:          reconcile.TypeRef{Type: "HEAD"},
			Name:          "Crown",
			Level:         reconcile.ItemLevel(level),
			Item:          reconcile.IDRef{ID: 100},
			Quality:       reconcile.TypeRef{Type: "EPIC"},
			Media:         reconcile.IDRef{ID: 900},
			InventoryType: "HEAD",
		},
		{
			Slot:          reconcile.TypeRef{Type: "MAIN_HAND"},
			Name:          "Greataxe",
			Level:         reconcile.ItemLevel(level),
			Item:          reconcile.IDRef{ID: 200},
			Quality:       reconcile.TypeRef{Type: "EPIC"},
			InventoryType: "TWOHWEAPON",
		},
	}}
}
