/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package destination

import (
	"context"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/google/jsonschema-go/jsonschema"
)

type Config interface {
	Validate() error
}

type Writer interface {
	GetConfigRef() Config
	Spec() (*jsonschema.Schema, error)
	Type() string
	// Check validates the config and the destination's reachability
	//
	// Note: Check is called on a dedicated instance before any stream is set up
	Check(ctx context.Context) error
	// Setup dedicates the writer to one stream
	Setup(stream *types.StreamDefinition, opts *Options) error
	// Write must return only once records are handed to the destination;
	// bookmarks are checkpointed right after
	Write(ctx context.Context, records []types.RawRecord) error
	// WriteState forwards a checkpointed state to destinations that track it
	WriteState(ctx context.Context, state *types.State) error
	Close(ctx context.Context) error
}
