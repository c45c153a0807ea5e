package main

import (
	"sync"

	"github.com/noise-free-cnv/packager/pkg/guidstore"
	"github.com/noise-free-cnv/packager/pkg/packagekit"
	"github.com/noise-free-cnv/packager/pkg/packagekit/wix"
	"github.com/noise-free-cnv/packager/pkg/product"
	"github.com/pkg/errors"
)

const (
	guidModeRandom  = "random"
	guidModeDerived = "derived"
	guidModePersist = "persist"
)

// guidSourceFor returns the component GUID source for mode, and a
// function releasing it. Derived and persisted GUIDs are kept per
// product and architecture, so upgrades replace the same components.
func guidSourceFor(mode string, dbPath string, prod product.Product) (wix.GuidSource, func(), error) {
	namespace := prod.Name + "-" + prod.Architecture

	switch mode {
	case guidModeRandom:
		return wix.RandomGuids(), func() {}, nil
	case guidModeDerived:
		return packagekit.DerivedGuids(namespace), func() {}, nil
	case guidModePersist:
		store, err := guidstore.Open(dbPath, namespace)
		if err != nil {
			return nil, nil, err
		}
		var once sync.Once
		return store, func() {
			once.Do(func() { store.Close() })
		}, nil
	}

	return nil, nil, errors.Errorf("unknown guid mode %q, expected %s, %s or %s", mode, guidModeRandom, guidModeDerived, guidModePersist)
}
