package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/datazip-inc/tap-ilevel/crypto"
	_ "github.com/datazip-inc/tap-ilevel/destination/singer"
	"github.com/datazip-inc/tap-ilevel/drivers/abstract"
	"github.com/datazip-inc/tap-ilevel/state"
	"github.com/datazip-inc/tap-ilevel/streams"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	BaseURL string `json:"base_url" validate:"required" jsonschema:"API base URL"`
}

func (c *fakeConfig) Validate() error {
	return utils.Validate(c)
}

// fakeDriver serves a fixed list of pages per stream
type fakeDriver struct {
	config   *fakeConfig
	pages    map[string][]*types.Page
	checkErr error
	starts   map[string]any
}

func (f *fakeDriver) GetConfigRef() abstract.Config {
	return f.config
}

func (f *fakeDriver) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[fakeConfig](nil)
}

func (f *fakeDriver) Type() string {
	return "fake"
}

func (f *fakeDriver) Setup(_ context.Context) error {
	return f.config.Validate()
}

func (f *fakeDriver) Check(_ context.Context, _ *types.StreamDefinition) error {
	return f.checkErr
}

func (f *fakeDriver) StartBookmark(_ *types.StreamDefinition) any {
	return nil
}

func (f *fakeDriver) Pages(_ context.Context, request types.FetchRequest) (abstract.PageIterator, error) {
	f.starts[request.Stream.Name] = request.Start
	return &fakePager{pages: f.pages[request.Stream.Name]}, nil
}

func (f *fakeDriver) StateStorage() *state.S3Config {
	return nil
}

type fakePager struct {
	pages []*types.Page
	page  *types.Page
	err   error
}

func (p *fakePager) Next(ctx context.Context) bool {
	if p.err = ctx.Err(); p.err != nil || len(p.pages) == 0 {
		return false
	}
	p.page, p.pages = p.pages[0], p.pages[1:]
	return true
}

func (p *fakePager) Page() *types.Page {
	return p.page
}

func (p *fakePager) Err() error {
	return p.err
}

var fake = &fakeDriver{config: &fakeConfig{}, pages: map[string][]*types.Page{}, starts: map[string]any{}}

func TestMain(m *testing.M) {
	registry, err := streams.New(
		&types.StreamDefinition{Name: "assets", KeyProperties: []string{"id"}, ReplicationMethod: types.Incremental, ReplicationKeys: []string{"last_modified_date"}},
		&types.StreamDefinition{
			Name:              "funds",
			KeyProperties:     []string{"id"},
			ReplicationMethod: types.FullTable,
			Children: []*types.StreamDefinition{
				{Name: "fund_notes", Path: "/notes", KeyProperties: []string{"id"}, ReplicationMethod: types.FullTable},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	CreateRootCommand(fake, registry)
	os.Exit(m.Run())
}

// execute runs the root command with args after resetting every flag to its default
func execute(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	RootCmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			require.NoError(t, slice.Replace(nil))
		} else {
			require.NoError(t, flag.Value.Set(flag.DefValue))
		}
		flag.Changed = false
	})

	out := &bytes.Buffer{}
	RootCmd.SetOut(out)
	RootCmd.SetArgs(args)
	return out, RootCmd.ExecuteContext(context.Background())
}

func decodeMessage(t *testing.T, out *bytes.Buffer) types.Message {
	t.Helper()
	var message types.Message
	require.NoError(t, json.Unmarshal(out.Bytes(), &message))
	return message
}

func writeJSON(t *testing.T, path string, value any) string {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDiscover(t *testing.T) {
	out, err := execute(t, "discover")
	require.NoError(t, err)

	message := decodeMessage(t, out)
	assert.Equal(t, types.CatalogMessage, message.Type)
	require.NotNil(t, message.Catalog)

	names := []string{}
	for _, entry := range message.Catalog.Streams {
		names = append(names, entry.Stream)
		if entry.Stream == "fund_notes" {
			assert.Equal(t, "funds", entry.Parent)
		}
	}
	assert.Equal(t, []string{"assets", "fund_notes", "funds"}, names)
}

func TestSpec(t *testing.T) {
	out, err := execute(t, "spec")
	require.NoError(t, err)
	message := decodeMessage(t, out)
	assert.Equal(t, types.SpecMessage, message.Type)
	assert.Contains(t, message.Spec["properties"], "base_url")

	out, err = execute(t, "spec", "--destination-type", "singer")
	require.NoError(t, err)
	assert.Contains(t, decodeMessage(t, out).Spec["properties"], "output")

	_, err = execute(t, "spec", "--destination-type", "nope")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	config := writeJSON(t, filepath.Join(dir, "config.json"), map[string]any{"base_url": "http://localhost"})

	out, err := execute(t, "check", "--config", config)
	require.NoError(t, err)
	message := decodeMessage(t, out)
	assert.Equal(t, types.ConnectionStatusMessage, message.Type)
	assert.Equal(t, types.ConnectionSucceed, message.ConnectionStatus.Status)

	fake.checkErr = errors.New("unauthorized")
	defer func() { fake.checkErr = nil }()
	out, err = execute(t, "check", "--config", config)
	require.Error(t, err)
	message = decodeMessage(t, out)
	assert.Equal(t, types.ConnectionFailed, message.ConnectionStatus.Status)
	assert.Contains(t, message.ConnectionStatus.Message, "unauthorized")

	_, err = execute(t, "check")
	assert.Error(t, err)
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := map[string]any{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func countType(lines []map[string]any, typ types.MessageType) int {
	count := 0
	for _, line := range lines {
		if line["type"] == string(typ) {
			count++
		}
	}
	return count
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	config := writeJSON(t, filepath.Join(dir, "config.json"), map[string]any{"base_url": "http://localhost"})
	output := filepath.Join(dir, "out.jsonl")
	dest := writeJSON(t, filepath.Join(dir, "destination.json"), map[string]any{"type": "SINGER", "writer": map[string]any{"output": output}})
	statePath := filepath.Join(dir, "state.json")

	fake.pages["assets"] = []*types.Page{
		{Number: 1, Records: []types.Record{
			{"id": 1, "last_modified_date": "2023-01-01T00:00:00Z"},
			{"id": 2, "last_modified_date": "2023-01-02T00:00:00Z"},
		}},
	}
	defer delete(fake.pages, "assets")

	_, err := execute(t, "sync", "--config", config, "--state", statePath, "--destination", dest, "--streams", "assets")
	require.NoError(t, err)

	saved := types.NewState()
	require.NoError(t, utils.UnmarshalFile(statePath, saved))
	bookmark, _ := saved.GetBookmark("assets")
	assert.Equal(t, "2023-01-02T00:00:00Z", bookmark)

	lines := readLines(t, output)
	assert.Equal(t, 1, countType(lines, types.SchemaMessage))
	assert.Equal(t, 2, countType(lines, types.RecordMessage))
	assert.Equal(t, 1, countType(lines, types.StateMessage))

	// second run resumes from the stored bookmark
	fake.pages["assets"] = nil
	_, err = execute(t, "sync", "--config", config, "--state", statePath, "--destination", dest, "--streams", "assets")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), fake.starts["assets"])

	// reset forgets it
	_, err = execute(t, "sync", "--config", config, "--state", statePath, "--destination", dest, "--streams", "assets", "--reset")
	require.NoError(t, err)
	assert.Nil(t, fake.starts["assets"])

	saved = types.NewState()
	require.NoError(t, utils.UnmarshalFile(statePath, saved))
	_, found := saved.GetBookmark("assets")
	assert.False(t, found)
}

func TestSyncRequiresConfig(t *testing.T) {
	_, err := execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config not passed")
}

func TestSyncSelectsParents(t *testing.T) {
	dir := t.TempDir()
	config := writeJSON(t, filepath.Join(dir, "config.json"), map[string]any{"base_url": "http://localhost"})
	output := filepath.Join(dir, "out.jsonl")
	dest := writeJSON(t, filepath.Join(dir, "destination.json"), map[string]any{"type": "SINGER", "writer": map[string]any{"output": output}})

	fake.pages["funds"] = []*types.Page{{Number: 1, Records: []types.Record{{"id": 7}}}}
	fake.pages["fund_notes"] = []*types.Page{{Number: 1, Records: []types.Record{{"id": 70}}}}
	defer delete(fake.pages, "funds")
	defer delete(fake.pages, "fund_notes")

	_, err := execute(t, "sync", "--config", config, "--state", filepath.Join(dir, "state.json"), "--destination", dest, "--streams", "fund_notes")
	require.NoError(t, err)

	records := map[string]int{}
	for _, line := range readLines(t, output) {
		if line["type"] == string(types.RecordMessage) {
			records[line["stream"].(string)]++
		}
	}
	assert.Equal(t, map[string]int{"funds": 1, "fund_notes": 1}, records)
}

func TestStreamNames(t *testing.T) {
	t.Setenv("TAP_ILEVEL_STREAMS", "assets, funds,,fund_notes")
	_, err := execute(t, "discover")
	require.NoError(t, err)
	assert.Equal(t, []string{"assets", "funds", "fund_notes"}, streamNames())
}

func TestCheckEncryptedConfig(t *testing.T) {
	cipher, err := crypto.New("passphrase")
	require.NoError(t, err)
	document, err := cipher.EncryptJSON([]byte(`{"base_url": "http://localhost"}`))
	require.NoError(t, err)

	config := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(config, document, 0o600))

	out, err := execute(t, "check", "--config", config, "--encryption-key", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, types.ConnectionSucceed, decodeMessage(t, out).ConnectionStatus.Status)

	_, err = execute(t, "check", "--config", config, "--encryption-key", "wrong")
	assert.Error(t, err)
}
