// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlclient opens dialect adapters by URL. Adapters register an
// Opener for their URL scheme in their package init; callers import the
// adapter packages for their side effect and call Open.
package sqlclient

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/dbmover/dbmover/sql/schema"
)

type (
	// A Driver is the full capability set of a dialect adapter: table
	// introspection, streaming reads and batched writes over one owned
	// connection.
	Driver interface {
		schema.Reader
		schema.Writer
		io.Closer
	}

	// A Client wraps an open Driver together with the URL it was opened
	// from.
	Client struct {
		Driver
		URL *url.URL
	}

	// An Opener opens a dialect driver by URL.
	Opener interface {
		Open(ctx context.Context, u *url.URL) (Driver, error)
	}

	// OpenerFunc allows using a function as an Opener.
	OpenerFunc func(ctx context.Context, u *url.URL) (Driver, error)
)

// Open calls f(ctx, u).
func (f OpenerFunc) Open(ctx context.Context, u *url.URL) (Driver, error) {
	return f(ctx, u)
}

var drivers sync.Map

// Register registers an opener under the given URL scheme. It panics when
// the scheme is already taken.
func Register(scheme string, opener Opener) {
	if opener == nil {
		panic("sql/sqlclient: Register opener is nil")
	}
	if _, dup := drivers.LoadOrStore(scheme, opener); dup {
		panic("sql/sqlclient: Register called twice for scheme " + scheme)
	}
}

// Open opens a client by its URL string. The scheme selects the adapter:
// sqlite://, postgres:// or mysql://.
func Open(ctx context.Context, s string) (*Client, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("sql/sqlclient: parse open url: %w", err)
	}
	return OpenURL(ctx, u)
}

// OpenURL opens a client by a parsed URL.
func OpenURL(ctx context.Context, u *url.URL) (*Client, error) {
	v, ok := drivers.Load(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("sql/sqlclient: no opener was registered with name %q", u.Scheme)
	}
	drv, err := v.(Opener).Open(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Client{Driver: drv, URL: u}, nil
}
