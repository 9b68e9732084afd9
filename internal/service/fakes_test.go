package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/mq"
	"github.com/septivank/device-registry/internal/repository"
)

// memStore is an in-memory Store with the repository's visibility rules
type memStore struct {
	mu       sync.Mutex
	now      time.Time
	devices  map[string]*db.Device
	readings []db.SensorReading
	groups   []*db.Group
	members  []db.DeviceGroup
	nextID   int64

	// failWith is returned by every call when set
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		devices: map[string]*db.Device{},
	}
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) visibleDevice(id string, includeDeleted bool) (*db.Device, bool) {
	d, ok := s.devices[id]
	if !ok || (d.IsDeleted && !includeDeleted) {
		return nil, false
	}
	return d, true
}

func (s *memStore) activeGroup(name string) *db.Group {
	for _, g := range s.groups {
		if g.GroupName == name && !g.IsDeleted {
			return g
		}
	}
	return nil
}

func (s *memStore) FindDeviceByID(_ context.Context, id string, includeDeleted bool) (*db.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	d, ok := s.visibleDevice(id, includeDeleted)
	if !ok {
		return nil, repository.ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) UpsertDevice(_ context.Context, id, name string) (*db.Device, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, false, s.failWith
	}
	if d, ok := s.devices[id]; ok {
		d.FriendlyName = name
		d.IsDeleted = false
		cp := *d
		return &cp, false, nil
	}
	d := &db.Device{DeviceID: id, FriendlyName: name, CreatedAt: s.tick()}
	s.devices[id] = d
	cp := *d
	return &cp, true, nil
}

func (s *memStore) RenameDevice(_ context.Context, id, name string) (*db.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	d, ok := s.visibleDevice(id, false)
	if !ok {
		return nil, repository.ErrDeviceNotFound
	}
	d.FriendlyName = name
	cp := *d
	return &cp, nil
}

func (s *memStore) SoftDeleteDevice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	d, ok := s.visibleDevice(id, false)
	if !ok {
		return repository.ErrDeviceNotFound
	}
	d.IsDeleted = true
	return nil
}

func (s *memStore) HardDeleteDevice(_ context.Context, id string, includeDeleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.visibleDevice(id, includeDeleted); !ok {
		return repository.ErrDeviceNotFound
	}
	kept := s.readings[:0]
	for _, r := range s.readings {
		if r.DeviceID == nil || *r.DeviceID != id {
			kept = append(kept, r)
		}
	}
	s.readings = kept
	keptMembers := s.members[:0]
	for _, m := range s.members {
		if m.DeviceID == nil || *m.DeviceID != id {
			keptMembers = append(keptMembers, m)
		}
	}
	s.members = keptMembers
	delete(s.devices, id)
	return nil
}

func (s *memStore) InsertSensorReading(_ context.Context, id string, m db.Measurements) (*db.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if _, ok := s.visibleDevice(id, false); !ok {
		return nil, repository.ErrDeviceNotFound
	}
	deviceID := id
	r := db.SensorReading{ID: s.id(), DeviceID: &deviceID, DateAdded: s.tick(), Measurements: m}
	s.readings = append(s.readings, r)
	return &r, nil
}

func (s *memStore) ListReadingsForDevice(_ context.Context, id string) ([]db.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := []db.SensorReading{}
	for _, r := range s.readings {
		if r.DeviceID != nil && *r.DeviceID == id {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].ID > out[j].ID
		}
		return out[i].DateAdded.After(out[j].DateAdded)
	})
	return out, nil
}

func (s *memStore) CreateGroup(_ context.Context, name string) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.activeGroup(name) != nil {
		return nil, repository.ErrGroupNameTaken
	}
	g := &db.Group{GroupID: s.id(), GroupName: name, CreatedAt: s.tick()}
	s.groups = append(s.groups, g)
	cp := *g
	return &cp, nil
}

func (s *memStore) RenameGroup(_ context.Context, oldName, newName string) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	g := s.activeGroup(oldName)
	if g == nil {
		for _, other := range s.groups {
			if other.GroupName == oldName {
				return nil, repository.ErrGroupDeleted
			}
		}
		return nil, repository.ErrGroupNotFound
	}
	if other := s.activeGroup(newName); other != nil && other.GroupID != g.GroupID {
		return nil, repository.ErrGroupNameTaken
	}
	g.GroupName = newName
	cp := *g
	return &cp, nil
}

func (s *memStore) SoftDeleteGroup(_ context.Context, name string) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	g := s.activeGroup(name)
	if g == nil {
		return nil, repository.ErrGroupNotFound
	}
	g.IsDeleted = true
	cp := *g
	return &cp, nil
}

func (s *memStore) ListGroupsWithDevices(_ context.Context) ([]db.GroupWithDevices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := []db.GroupWithDevices{}
	for _, g := range s.groups {
		if g.IsDeleted {
			continue
		}
		entry := db.GroupWithDevices{Group: *g, Devices: []db.GroupMember{}}
		for _, m := range s.members {
			if m.GroupID != g.GroupID || m.DeviceID == nil {
				continue
			}
			d := s.devices[*m.DeviceID]
			entry.Devices = append(entry.Devices, db.GroupMember{
				DeviceID:     d.DeviceID,
				FriendlyName: d.FriendlyName,
				CreatedAt:    d.CreatedAt,
				IsDeleted:    d.IsDeleted,
				AddedAt:      m.AddedAt,
			})
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *memStore) AddDeviceToGroup(_ context.Context, groupName, deviceID string) (*db.DeviceGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	g := s.activeGroup(groupName)
	if g == nil {
		return nil, repository.ErrGroupNotFound
	}
	if _, ok := s.visibleDevice(deviceID, false); !ok {
		return nil, repository.ErrDeviceNotFound
	}
	for _, m := range s.members {
		if m.GroupID == g.GroupID && m.DeviceID != nil && *m.DeviceID == deviceID {
			return nil, repository.ErrAlreadyMember
		}
	}
	id := deviceID
	m := db.DeviceGroup{ID: s.id(), GroupID: g.GroupID, DeviceID: &id, AddedAt: s.tick()}
	s.members = append(s.members, m)
	return &m, nil
}

func (s *memStore) HardDeleteGroup(_ context.Context, name string) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	g := s.activeGroup(name)
	if g == nil {
		return nil, repository.ErrGroupNotFound
	}
	keptMembers := s.members[:0]
	for _, m := range s.members {
		if m.GroupID != g.GroupID {
			keptMembers = append(keptMembers, m)
		}
	}
	s.members = keptMembers
	keptGroups := s.groups[:0]
	for _, other := range s.groups {
		if other.GroupID != g.GroupID {
			keptGroups = append(keptGroups, other)
		}
	}
	s.groups = keptGroups
	cp := *g
	return &cp, nil
}

func (s *memStore) membershipCount(groupName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.activeGroup(groupName)
	if g == nil {
		return 0
	}
	n := 0
	for _, m := range s.members {
		if m.GroupID == g.GroupID {
			n++
		}
	}
	return n
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.RegistryEvent
	err    error
}

func (p *recordingPublisher) PublishRegistryEvent(_ context.Context, event mq.RegistryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []mq.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]mq.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingMirror captures mirrored readings
type recordingMirror struct {
	mu       sync.Mutex
	readings []db.SensorReading
}

func (m *recordingMirror) WriteReading(reading db.SensorReading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, reading)
}

var errStorage = errors.New("connection reset by peer")
