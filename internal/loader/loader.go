package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/copperline/docflow/internal/util"
	"github.com/copperline/docflow/pkg/api"
	"github.com/copperline/docflow/pkg/log"
)

// Loader resolves flow definitions by name or inline text. Definitions live
// in a blob bucket (a local directory in development, any gocloud.dev
// bucket URL in deployment) in two formats: structured-source Lua files
// exposing build_flow(), and plain-data JSON files
type Loader struct {
	bucket *blob.Bucket
	cache  *util.LRUCache[*api.FlowDefinition]
	dir    string
}

const (
	luaExt  = ".lua"
	jsonExt = ".json"
)

// New opens the flow store at dir, which is either a local path or a
// bucket URL such as s3://flows
func New(ctx context.Context, dir string, cacheSize int) (*Loader, error) {
	url := dir
	if !strings.Contains(dir, "://") {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		url = "file://" + filepath.ToSlash(abs)
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: flow store %s: %v",
			api.ErrDependencyUnavailable, dir, err)
	}
	res := NewWithBucket(bucket, cacheSize)
	res.dir = dir
	return res, nil
}

// NewWithBucket creates a loader over an already open bucket
func NewWithBucket(bucket *blob.Bucket, cacheSize int) *Loader {
	return &Loader{
		bucket: bucket,
		cache:  util.NewLRUCache[*api.FlowDefinition](cacheSize),
		dir:    "(bucket)",
	}
}

// LoadByName resolves a flow by name: cache, then <name>.lua, then
// <name>.json. A miss on both formats fails with ErrFlowNotFound whose
// message enumerates every discoverable definition.
//
// KNOWN LIMITATION: the cache is keyed by name only. Replacing a
// definition file under a cached name without restarting the process is
// undefined behavior
func (l *Loader) LoadByName(
	ctx context.Context, name string,
) (*api.FlowDefinition, error) {
	return l.cache.Get(name, func() (*api.FlowDefinition, error) {
		return l.load(ctx, name)
	})
}

// LoadFromText parses inline JSON text into a flow definition
func (l *Loader) LoadFromText(text string) (*api.FlowDefinition, error) {
	return decodeDefinition([]byte(text))
}

// List enumerates the flow definitions discoverable in the store, both
// formats, sorted by name. Used for diagnostics only
func (l *Loader) List(ctx context.Context) ([]string, error) {
	var flows []string
	iter := l.bucket.List(nil)
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case strings.HasSuffix(obj.Key, luaExt):
			flows = append(flows,
				strings.TrimSuffix(obj.Key, luaExt)+" (lua)")
		case strings.HasSuffix(obj.Key, jsonExt):
			flows = append(flows,
				strings.TrimSuffix(obj.Key, jsonExt)+" (json)")
		}
	}
	sort.Strings(flows)
	return flows, nil
}

// Close releases the underlying bucket
func (l *Loader) Close() error {
	return l.bucket.Close()
}

func (l *Loader) load(
	ctx context.Context, name string,
) (*api.FlowDefinition, error) {
	data, err := l.bucket.ReadAll(ctx, name+luaExt)
	if err == nil {
		slog.Debug("Loading Lua flow", log.FlowID(name))
		return buildLuaFlow(data, name)
	}
	if gcerrors.Code(err) != gcerrors.NotFound {
		return nil, err
	}

	data, err = l.bucket.ReadAll(ctx, name+jsonExt)
	if err == nil {
		slog.Debug("Loading JSON flow", log.FlowID(name))
		return decodeDefinition(data)
	}
	if gcerrors.Code(err) != gcerrors.NotFound {
		return nil, err
	}

	return nil, l.notFound(ctx, name)
}

// notFound builds the ErrFlowNotFound message. The available-flows listing
// is best-effort; a secondary listing error never masks the primary one
func (l *Loader) notFound(ctx context.Context, name string) error {
	available, err := l.List(ctx)
	if err != nil {
		slog.Warn("Failed to list available flows", log.Error(err))
		available = nil
	}
	return fmt.Errorf("%w: %q in %s; available flows: [%s]",
		api.ErrFlowNotFound, name, l.dir, strings.Join(available, ", "))
}

func decodeDefinition(data []byte) (*api.FlowDefinition, error) {
	var def api.FlowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrInvalidDefinition, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrMalformedFlow, err)
	}
	return &def, nil
}
