// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlclient

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "nosuch://db")
	require.ErrorContains(t, err, `no opener was registered with name "nosuch"`)
}

func TestOpen_Registered(t *testing.T) {
	var opened *url.URL
	Register("fake", OpenerFunc(func(_ context.Context, u *url.URL) (Driver, error) {
		opened = u
		return nil, nil
	}))
	c, err := Open(context.Background(), "fake://host/db")
	require.NoError(t, err)
	require.Equal(t, "host", c.URL.Host)
	require.NotNil(t, opened)
}

func TestRegister_Duplicate(t *testing.T) {
	Register("dup", OpenerFunc(func(context.Context, *url.URL) (Driver, error) {
		return nil, nil
	}))
	require.Panics(t, func() {
		Register("dup", OpenerFunc(func(context.Context, *url.URL) (Driver, error) {
			return nil, nil
		}))
	})
	require.Panics(t, func() { Register("nilop", nil) })
}
