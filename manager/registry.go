package manager

import (
	"fmt"

	"github.com/rentabot/rentabot/models"
)

// Resources returns all registered resources in registration order.
func (m *Manager) Resources() []*models.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()

	resources := make([]*models.Resource, 0, len(m.resourceOrder))

	for _, id := range m.resourceOrder {
		resources = append(resources, m.resources[id].Clone())
	}

	return resources
}

// Resource returns the resource with the given id.
func (m *Manager) Resource(id int) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resource, err := m.resourceLocked(id)
	if err != nil {
		return nil, err
	}

	return resource.Clone(), nil
}

// FindResource returns the resource with the given name.
func (m *Manager) FindResource(name string) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.resourcesByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: name %q", ErrResourceNotFound, name)
	}

	return m.resources[id].Clone(), nil
}

// MatchResources returns the resources whose tag set is a superset of the
// given tags, in registration order. An empty result is not an error.
func (m *Manager) MatchResources(tags []string) []*models.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := m.matchLocked(tags)
	clones := make([]*models.Resource, 0, len(matches))

	for _, resource := range matches {
		clones = append(clones, resource.Clone())
	}

	return clones
}

// resourceLocked looks up a live (uncloned) resource. Callers must hold m.mu.
func (m *Manager) resourceLocked(id int) (*models.Resource, error) {
	resource, ok := m.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrResourceNotFound, id)
	}

	return resource, nil
}

// matchLocked returns live resources matching the tags, in registration
// order. Callers must hold m.mu.
func (m *Manager) matchLocked(tags []string) []*models.Resource {
	var matches []*models.Resource

	for _, id := range m.resourceOrder {
		resource := m.resources[id]

		if resource.MatchesTags(tags) {
			matches = append(matches, resource)
		}
	}

	return matches
}
