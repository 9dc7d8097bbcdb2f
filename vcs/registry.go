package vcs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	emptyProviderNameMessageConstant        = "provider name must not be empty"
	nilFactoryMessageTemplateConstant       = "provider %q: nil factory"
	duplicateProviderMessageTemplateConst   = "provider %q already registered"
	unknownProviderMessageTemplateConstant  = "unknown provider %q (registered: %s)"
	registrationFailureTemplateConstant     = "vcs registration failed: %v"
	providerNameListSeparatorConstant       = ", "
)

// ErrEmptyProviderName indicates registration with a blank identifier.
var ErrEmptyProviderName = errors.New(emptyProviderNameMessageConstant)

var (
	registryMutex     sync.RWMutex
	registryFactories = map[string]Factory{}
)

// Register adds a provider factory under the supplied name. Duplicate names
// and nil factories are errors so hosts can report broken plugin sets.
func Register(name string, factory Factory) error {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 {
		return ErrEmptyProviderName
	}
	if factory == nil {
		return fmt.Errorf(nilFactoryMessageTemplateConstant, trimmedName)
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, alreadyRegistered := registryFactories[trimmedName]; alreadyRegistered {
		return fmt.Errorf(duplicateProviderMessageTemplateConst, trimmedName)
	}
	registryFactories[trimmedName] = factory
	return nil
}

// MustRegister registers a factory and panics on failure. Intended for
// provider package init functions, where a failure is a programming error.
func MustRegister(name string, factory Factory) {
	registrationError := Register(name, factory)
	if registrationError != nil {
		panic(fmt.Sprintf(registrationFailureTemplateConstant, registrationError))
	}
}

// New builds the named provider with the supplied dependencies.
func New(name string, dependencies Dependencies) (Provider, error) {
	registryMutex.RLock()
	factory, registered := registryFactories[name]
	registryMutex.RUnlock()

	if !registered {
		return nil, fmt.Errorf(unknownProviderMessageTemplateConstant, name, strings.Join(ProviderNames(), providerNameListSeparatorConstant))
	}
	return factory(dependencies)
}

// ProviderNames lists the registered provider identifiers in sorted order.
func ProviderNames() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registryFactories))
	for registeredName := range registryFactories {
		names = append(names, registeredName)
	}
	sort.Strings(names)
	return names
}
