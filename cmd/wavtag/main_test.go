package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/binaryphile/wavtag/internal/config"
	"github.com/binaryphile/wavtag/internal/inspect"
	"github.com/binaryphile/wavtag/internal/metadata"
)

// run executes the root command in a scratch working directory so no
// wavtag.yaml from the developer's tree is picked up.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

// writeRaw writes interleaved float32 stereo frames.
func writeRaw(t *testing.T, path string, samples ...float32) {
	t.Helper()
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
}

func readReport(t *testing.T, path string) *inspect.Report {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rep, err := inspect.Read(f)
	if err != nil {
		t.Fatalf("inspect %s: %v", path, err)
	}
	return rep
}

func frameText(rep *inspect.Report, id string) string {
	for _, f := range rep.Frames {
		if f.ID == id {
			return f.Text
		}
	}
	return ""
}

func infoValue(rep *inspect.Report, id string) string {
	for _, it := range rep.Info {
		if it.ID == id {
			return it.Value
		}
	}
	return ""
}

func TestEncode_TagFlags(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0, 0.5, -0.5)
	outDir := filepath.Join(dir, "out")

	stdout, err := run(t, "encode", in,
		"--sample-rate", "8000",
		"--output-dir", outDir,
		"--tag", "title=Hello World",
		"--tag", "artist=Me",
	)
	if err != nil {
		t.Fatalf("encode failed: %v\n%s", err, stdout)
	}

	path := filepath.Join(outDir, "Me-Hello_World.wav")
	if !strings.Contains(stdout, path) {
		t.Errorf("output %q does not name %s", stdout, path)
	}

	rep := readReport(t, path)
	if rep.Format.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", rep.Format.SampleRate)
	}
	if rep.DataLen != 8 {
		t.Errorf("DataLen = %d, want 8", rep.DataLen)
	}
	if got := frameText(rep, "TIT2"); got != "Hello World" {
		t.Errorf("TIT2 = %q, want Hello World", got)
	}
	if got := infoValue(rep, "IART"); got != "Me" {
		t.Errorf("IART = %q, want Me", got)
	}
}

func TestEncode_DefaultTags(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0.25, 0.25)
	out := filepath.Join(dir, "clip.wav")

	if stdout, err := run(t, "encode", in, "-o", out); err != nil {
		t.Fatalf("encode failed: %v\n%s", err, stdout)
	}

	rep := readReport(t, out)
	if got := infoValue(rep, "INAM"); got != "Untitled Recording" {
		t.Errorf("INAM = %q, want Untitled Recording", got)
	}
	if got := frameText(rep, "TALB"); got != "Untitled Album" {
		t.Errorf("TALB = %q, want Untitled Album", got)
	}
	wantSoftware := "wavtag " + version
	if got := infoValue(rep, "ISFT"); got != wantSoftware {
		t.Errorf("ISFT = %q, want %q", got, wantSoftware)
	}
	if got := frameText(rep, "TSSE"); got != wantSoftware {
		t.Errorf("TSSE = %q, want %q", got, wantSoftware)
	}
}

func TestEncode_SoftwareDisabled(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0)
	out := filepath.Join(dir, "clip.wav")

	if stdout, err := run(t, "encode", in, "-o", out, "--software", ""); err != nil {
		t.Fatalf("encode failed: %v\n%s", err, stdout)
	}
	rep := readReport(t, out)
	if got := infoValue(rep, "ISFT"); got != "" {
		t.Errorf("ISFT = %q, want none", got)
	}
}

func TestEncode_MappingFileAndSoftware(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0)
	mapping := filepath.Join(dir, "tags.json")
	os.WriteFile(mapping, []byte(`{
		"album": "Abbey Road",
		"comment": {"id3": {"value": "nice", "description": "note", "language": "eng"}, "riff": "nice"}
	}`), 0644)
	out := filepath.Join(dir, "out.wav")

	if stdout, err := run(t, "encode", in, "-o", out, "--metadata", mapping, "--software", "wavtag-test"); err != nil {
		t.Fatalf("encode failed: %v\n%s", err, stdout)
	}

	rep := readReport(t, out)
	if got := frameText(rep, "TALB"); got != "Abbey Road" {
		t.Errorf("TALB = %q, want Abbey Road", got)
	}
	if got := frameText(rep, "COMM"); got != "nice" {
		t.Errorf("COMM = %q, want nice", got)
	}
	if got := infoValue(rep, "ISFT"); got != "wavtag-test" {
		t.Errorf("ISFT = %q, want wavtag-test", got)
	}
}

func TestEncode_AlbumTrack(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "track02.f32")
	writeRaw(t, in, 0, 0)
	albumPath, err := filepath.Abs("../../internal/metadata/testdata/standard_album.json")
	if err != nil {
		t.Fatal(err)
	}
	album, err := metadata.ParseJSON(albumPath)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.wav")

	if stdout, err := run(t, "encode", in, "-o", out, "--album", albumPath, "--track", "2"); err != nil {
		t.Fatalf("encode failed: %v\n%s", err, stdout)
	}

	rep := readReport(t, out)
	if got := frameText(rep, "TIT2"); got != album.Tracks[1].Title {
		t.Errorf("TIT2 = %q, want %q", got, album.Tracks[1].Title)
	}
	if got := frameText(rep, "TALB"); got != album.AlbumTitle {
		t.Errorf("TALB = %q, want %q", got, album.AlbumTitle)
	}
}

func TestEncode_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0)

	tests := []struct {
		name string
		args []string
	}{
		{"bad tag", []string{"encode", in, "--tag", "novalue"}},
		{"album without track", []string{"encode", in, "--album", "x.json"}},
		{"overwrite input", []string{"encode", in, "-o", in}},
		{"missing input", []string{"encode", filepath.Join(dir, "nope.wav")}},
		{"no args", []string{"encode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncode_OverwriteInputIsSameFileError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0)

	_, err := run(t, "encode", in, "-o", in)
	if !errors.Is(err, errSameFile) {
		t.Errorf("error = %v, want errSameFile", err)
	}
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := run(t, "tags", "--flatten", "sideways")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestInspect_JSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0)
	out := filepath.Join(dir, "out.wav")
	if _, err := run(t, "encode", in, "-o", out, "--tag", "artist=Someone"); err != nil {
		t.Fatal(err)
	}

	stdout, err := run(t, "inspect", "--json", out)
	if err != nil {
		t.Fatalf("inspect failed: %v\n%s", err, stdout)
	}

	var rep inspect.Report
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, stdout)
	}
	if rep.ID3Version != 3 {
		t.Errorf("ID3Version = %d, want 3", rep.ID3Version)
	}
	if got := frameText(&rep, "TPE1"); got != "Someone" {
		t.Errorf("TPE1 = %q, want Someone", got)
	}
}

func TestInspect_Text(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.f32")
	writeRaw(t, in, 0, 0)
	out := filepath.Join(dir, "out.wav")
	if _, err := run(t, "encode", in, "-o", out); err != nil {
		t.Fatal(err)
	}

	stdout, err := run(t, "inspect", out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"INFO", "INAM", "ID3v2.3", "TIT2", `"id3 "`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestTags_ListsTable(t *testing.T) {
	stdout, err := run(t, "tags")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "title", "TIT2", "name", "INAM"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestBatch_Album(t *testing.T) {
	dir := t.TempDir()
	inDir := filepath.Join(dir, "in")
	os.Mkdir(inDir, 0755)
	for _, name := range []string{"track02.f32", "track01.f32", "notes.txt"} {
		writeRaw(t, filepath.Join(inDir, name), 0, 0)
	}
	albumPath := filepath.Join(dir, "album.json")
	os.WriteFile(albumPath, []byte(`{
		"artist": "Test Artist",
		"album": "Test Album",
		"year": "2024",
		"tracks": [
			{"num": 1, "title": "Track One"},
			{"num": 2, "title": "Track Two"}
		]
	}`), 0644)
	album, err := metadata.ParseJSON(albumPath)
	if err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	stdout, err := run(t, "batch", inDir, "--album", albumPath, "--output-dir", outDir, "--concurrency", "2")
	if err != nil {
		t.Fatalf("batch failed: %v\n%s", err, stdout)
	}

	for n := 1; n <= 2; n++ {
		path := filepath.Join(outDir, metadata.TrackFilename(album, n))
		rep := readReport(t, path)
		if got := frameText(rep, "TIT2"); got != album.Tracks[n-1].Title {
			t.Errorf("%s TIT2 = %q, want %q", path, got, album.Tracks[n-1].Title)
		}
		if got := frameText(rep, "TRCK"); got != []string{"1/2", "2/2"}[n-1] {
			t.Errorf("%s TRCK = %q", path, got)
		}
	}
}

func TestBatch_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, filepath.Join(dir, "track01.f32"), 0, 0)
	outDir := filepath.Join(dir, "out")

	stdout, err := run(t, "batch", dir, "--dry-run", "--output-dir", outDir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "track01.f32 -> ") {
		t.Errorf("dry run output = %q", stdout)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("dry run created the output directory")
	}
}

func TestBatch_OutputCollisions(t *testing.T) {
	t.Run("shared base name", func(t *testing.T) {
		dir := t.TempDir()
		writeRaw(t, filepath.Join(dir, "a.f32"), 0, 0)
		writeRaw(t, filepath.Join(dir, "a.raw"), 0, 0)
		outDir := filepath.Join(dir, "out")

		_, err := run(t, "batch", dir, "--output-dir", outDir)
		if !errors.Is(err, errOutputCollision) {
			t.Errorf("error = %v, want errOutputCollision", err)
		}
		if _, err := os.Stat(outDir); !os.IsNotExist(err) {
			t.Error("output directory created despite collision")
		}
	})

	t.Run("output over input", func(t *testing.T) {
		dir := t.TempDir()
		writeRaw(t, filepath.Join(dir, "a.wav"), 0, 0)

		_, err := run(t, "batch", dir, "--output-dir", dir)
		if !errors.Is(err, errOutputCollision) {
			t.Errorf("error = %v, want errOutputCollision", err)
		}
	})
}

func TestPlanBatch_Distinct(t *testing.T) {
	dir := t.TempDir()
	files := []string{filepath.Join(dir, "a.f32"), filepath.Join(dir, "b.f32")}

	jobs, err := planBatch(files, nil, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if jobs[0].output == jobs[1].output {
		t.Errorf("outputs collide: %s", jobs[0].output)
	}
}

func TestBatch_NoInputs(t *testing.T) {
	if _, err := run(t, "batch", t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestOverlay(t *testing.T) {
	base, _ := parseTagArgs([]string{"title=A", "artist=B"})
	top, _ := parseTagArgs([]string{"title=C"})

	got := overlay(base, top)
	if textOf(got, "title") != "C" || textOf(got, "artist") != "B" {
		t.Errorf("overlay = %v", got)
	}
	if textOf(base, "title") != "A" {
		t.Error("overlay modified base")
	}
	if overlay(nil, nil) != nil {
		t.Error("overlay(nil, nil) != nil")
	}
}
