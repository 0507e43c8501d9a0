package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

type profileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*model.Profile
}

func newProfileRepository() *profileRepository {
	return &profileRepository{
		profiles: make(map[string]*model.Profile),
	}
}

func copyProfile(p *model.Profile) *model.Profile {
	copied := *p
	return &copied
}

func (r *profileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "profile not found", goerr.V("id", id))
	}
	return copyProfile(p), nil
}

func (r *profileRepository) GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*model.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out[id] = copyProfile(p)
		}
	}
	return out, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *profileRepository) SaveMany(ctx context.Context, profiles []*model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range profiles {
		if p.ID == "" {
			return goerr.New("profile ID is required")
		}
		r.profiles[p.ID] = copyProfile(p)
	}
	return nil
}
