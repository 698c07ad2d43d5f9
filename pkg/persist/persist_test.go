package persist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/metrics"
)

func sampleStore() *knowledge.Store {
	s := dataset.Medical()
	s.AddNode("Грипп", knowledge.TypeDisease, knowledge.Attributes{
		Severity: "medium",
		Extra:    map[string]any{"icd": "J11"},
	})
	_ = s.AddRelation("Грипп", knowledge.LabelHasSymptom, "Fever")
	_ = s.AddRelation("Грипп", knowledge.LabelHasSymptom, "Fever")
	return s
}

func sameStore(t *testing.T, want, got *knowledge.Store) {
	t.Helper()
	if !reflect.DeepEqual(want.Export(), got.Export()) {
		t.Errorf("restored store differs:\nwant %+v\ngot  %+v", want.Export(), got.Export())
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	codecs := []Codec{JSONCodec{}, YAMLCodec{}, SnappyCodec{}, SnappyCodec{Inner: YAMLCodec{}}}

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			orig := sampleStore()
			data, err := c.Encode(orig.Export())
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			doc, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			restored, err := knowledge.Import(doc)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			sameStore(t, orig, restored)
		})
	}
}

func TestJSONCodec_Readable(t *testing.T) {
	data, err := JSONCodec{}.Encode(sampleStore().Export())
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "Грипп") {
		t.Error("non-ASCII names should be written as is")
	}
	if !strings.Contains(text, "\n  \"relations\"") {
		t.Errorf("expected indented output, got:\n%.200s", text)
	}
}

func TestSnappyCodec_Corruption(t *testing.T) {
	c := SnappyCodec{}
	data, err := c.Encode(sampleStore().Export())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXX\x01"), data[5:]...)},
		{"flipped byte", func() []byte {
			d := append([]byte(nil), data...)
			d[len(d)-1] ^= 0xff
			return d
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decode(tt.data); !errors.Is(err, ErrCorruptSnapshot) {
				t.Errorf("Decode() error = %v, want ErrCorruptSnapshot", err)
			}
		})
	}
}

func TestSnappyCodec_Compresses(t *testing.T) {
	doc := sampleStore().Export()
	plain, _ := JSONCodec{}.Encode(doc)
	packed, _ := SnappyCodec{}.Encode(doc)
	if len(packed) >= len(plain) {
		t.Errorf("compressed %d bytes >= plain %d bytes", len(packed), len(plain))
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"kb.json", "json", false},
		{"dir/kb.YAML", "yaml", false},
		{"kb.yml", "yaml", false},
		{"kb.json.sz", "snappy", false},
		{"kb.snappy", "snappy", false},
		{"kb.xml", "", true},
		{"kb", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, err := CodecFor(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("CodecFor(%q) error = %v, want ErrUnknownFormat", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CodecFor(%q): %v", tt.path, err)
			}
			if c.Name() != tt.want {
				t.Errorf("CodecFor(%q) = %s, want %s", tt.path, c.Name(), tt.want)
			}
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"kb.json", "kb.yaml", "kb.json.sz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			orig := sampleStore()
			if err := SaveFile(path, orig); err != nil {
				t.Fatalf("SaveFile: %v", err)
			}
			restored, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			sameStore(t, orig, restored)
		})
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".semnet-") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("missing file: expected ErrNoSnapshot, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"nodes":{"A":{"type":"x"}},"relations":[["A","r","B"]]}`), 0o600)
	if _, err := LoadFile(bad); !knowledge.IsUnknownEndpoint(err) {
		t.Errorf("expected unknown endpoint error, got %v", err)
	}
}

// invalidStores hold content AddNode accepts but a dataset would reject.
func invalidStores() map[string]*knowledge.Store {
	spaced := knowledge.NewStore()
	spaced.AddNode("Sore throat", knowledge.TypeSymptom, knowledge.Attributes{})

	severity := knowledge.NewStore()
	severity.AddNode("Flu", knowledge.TypeDisease, knowledge.Attributes{Severity: "extreme"})

	label := knowledge.NewStore()
	label.AddNode("Flu", knowledge.TypeDisease, knowledge.Attributes{})
	label.AddNode("Fever", knowledge.TypeSymptom, knowledge.Attributes{})
	_ = label.AddRelation("Flu", "Has Symptom", "Fever")

	extra := knowledge.NewStore()
	extra.AddNode("Flu", knowledge.TypeDisease, knowledge.Attributes{Extra: map[string]any{"icd-10": "J11"}})

	return map[string]*knowledge.Store{
		"name with space": spaced,
		"bad severity":    severity,
		"bad label":       label,
		"bad extra key":   extra,
	}
}

func TestLoad_InvalidSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := newMemS3()

	for name, store := range invalidStores() {
		t.Run(name, func(t *testing.T) {
			fileStore, err := NewFileStore(filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml"))
			if err != nil {
				t.Fatal(err)
			}
			s3Store, err := NewS3StoreWithClient(client, "backups", strings.ReplaceAll(name, " ", "_")+".json")
			if err != nil {
				t.Fatal(err)
			}

			for _, snap := range []Snapshotter{fileStore, s3Store} {
				if _, err := snap.Save(ctx, store); err != nil {
					t.Fatalf("%s Save: %v", snap.Backend(), err)
				}
				got, err := snap.Load(ctx)
				if !errors.Is(err, ErrInvalidSnapshot) {
					t.Errorf("%s Load error = %v, want ErrInvalidSnapshot", snap.Backend(), err)
				}
				if got != nil {
					t.Errorf("%s Load returned a store for an invalid snapshot", snap.Backend())
				}
			}
		})
	}
}

// memS3 is an in-memory S3API.
type memS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemS3() *memS3 {
	return &memS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := *in.Bucket + "/" + *in.Key
	m.objects[key] = data
	m.contentTypes[key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{Message: in.Key}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store(t *testing.T) {
	client := newMemS3()
	store, err := NewS3StoreWithClient(client, "backups", "semnet/kb.json.sz")
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	orig := sampleStore()
	n, err := store.Save(ctx, orig)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != len(client.objects["backups/semnet/kb.json.sz"]) {
		t.Errorf("Save reported %d bytes", n)
	}
	if client.contentTypes["backups/semnet/kb.json.sz"] != "application/octet-stream" {
		t.Errorf("content type = %q", client.contentTypes["backups/semnet/kb.json.sz"])
	}

	restored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameStore(t, orig, restored)

	missing, _ := NewS3StoreWithClient(client, "backups", "other.json")
	if _, err := missing.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("missing object: expected ErrNoSnapshot, got %v", err)
	}

	if _, err := NewS3StoreWithClient(client, "backups", "kb.txt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestInstrumented(t *testing.T) {
	reg := metrics.NewRegistry()
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.InfoLevel)

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "kb.json"))
	if err != nil {
		t.Fatal(err)
	}
	snap := Instrument(fs, reg, logger)

	ctx := context.Background()
	if _, err := snap.Save(ctx, sampleStore()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := snap.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	broken := Instrument(&FileStore{path: filepath.Join(t.TempDir(), "none.json"), codec: JSONCodec{}}, reg, logger)
	if _, err := broken.Load(ctx); err == nil {
		t.Fatal("expected load error")
	}

	for _, tc := range []struct {
		labels []string
		want   float64
	}{
		{[]string{"save", "file", "success"}, 1},
		{[]string{"load", "file", "success"}, 1},
		{[]string{"load", "file", "error"}, 1},
	} {
		var m dto.Metric
		if err := reg.SnapshotOperationsTotal.WithLabelValues(tc.labels...).Write(&m); err != nil {
			t.Fatal(err)
		}
		if m.Counter.GetValue() != tc.want {
			t.Errorf("%v = %v, want %v", tc.labels, m.Counter.GetValue(), tc.want)
		}
	}

	out := logs.String()
	for _, msg := range []string{"snapshot saved", "snapshot loaded", "snapshot load failed"} {
		if !strings.Contains(out, msg) {
			t.Errorf("log missing %q:\n%s", msg, out)
		}
	}
}

func TestPGStore(t *testing.T) {
	url := os.Getenv("SEMNET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SEMNET_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPGStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPGStore: %v", err)
	}
	defer store.Close()

	orig := sampleStore()
	n, err := store.Save(ctx, orig)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != orig.NodeCount()+orig.RelationCount() {
		t.Errorf("Save wrote %d rows", n)
	}

	restored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameStore(t, orig, restored)

	counted := knowledge.NewStore()
	counted.AddNode("Flu", knowledge.TypeDisease, knowledge.Attributes{Extra: map[string]any{"cases": 3}})
	if _, err := store.Save(ctx, counted); err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameStore(t, counted, restored)

	for name, invalid := range invalidStores() {
		if _, err := store.Save(ctx, invalid); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		if _, err := store.Load(ctx); !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("Load(%s) error = %v, want ErrInvalidSnapshot", name, err)
		}
	}

	if _, err := store.Save(ctx, knowledge.NewStore()); err != nil {
		t.Fatalf("Save(empty): %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load on empty tables error = %v, want ErrNoSnapshot", err)
	}
}
