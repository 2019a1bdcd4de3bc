package id3

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/binaryphile/wavtag/internal/bytebuild"
	"github.com/binaryphile/wavtag/internal/tags"
)

// queued defers every flatten until run is called, then completes them in
// reverse order of submission.
type queued struct {
	mu   sync.Mutex
	jobs []func()
}

func (q *queued) Flatten(b *bytebuild.Builder, done func([]byte)) {
	buf := b.Flatten()
	q.mu.Lock()
	q.jobs = append(q.jobs, func() { done(buf) })
	q.mu.Unlock()
}

func (q *queued) run() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[len(q.jobs)-1]
		q.jobs = q.jobs[:len(q.jobs)-1]
		q.mu.Unlock()
		job()
	}
}

func encodeFrame(t *testing.T, id string, d tags.ID3Data) []byte {
	t.Helper()
	var (
		got   []byte
		calls int
	)
	FrameEncoder{}.Encode(id, d, func(frame []byte, err error) {
		calls++
		if err != nil {
			t.Fatalf("Encode(%s) error: %v", id, err)
		}
		got = frame
	})
	if calls != 1 {
		t.Fatalf("done called %d times, want 1", calls)
	}
	return got
}

func header(id string, size byte) []byte {
	return []byte{id[0], id[1], id[2], id[3], 0, 0, 0, size, 0, 0}
}

func TestFrameEncoder_Text(t *testing.T) {
	got := encodeFrame(t, "TIT2", tags.ID3Data{Value: "Hi"})

	want := append(header("TIT2", 7), 0x01, 0xFF, 0xFE, 'H', 0x00, 'i', 0x00)
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x, want % x", got, want)
	}
}

func TestFrameEncoder_TextPlaceholder(t *testing.T) {
	got := encodeFrame(t, "TALB", tags.ID3Data{})

	// 1 marker + BOM + "<no_value>" as 10 UCS-2 units
	if size := len(got) - FrameHeaderLen; size != 23 {
		t.Errorf("body size = %d, want 23", size)
	}
	if got[7] != 23 {
		t.Errorf("size field = %d, want 23", got[7])
	}
}

func TestFrameEncoder_UserText(t *testing.T) {
	got := encodeFrame(t, "TXXX", tags.ID3Data{Description: "D", Value: "v"})

	want := append(header("TXXX", 11),
		0x01,
		0xFF, 0xFE, 'D', 0x00,
		0x00, 0x00,
		0xFF, 0xFE, 'v', 0x00,
	)
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x, want % x", got, want)
	}
}

func TestFrameEncoder_UserTextPlaceholderKey(t *testing.T) {
	got := encodeFrame(t, "TXXX", tags.ID3Data{Value: "v"})

	desc := []byte{0xFF, 0xFE}
	for _, r := range "<unkown_key>" {
		desc = append(desc, byte(r), 0x00)
	}
	if !bytes.Contains(got, desc) {
		t.Errorf("frame % x does not contain placeholder description", got)
	}
}

func TestFrameEncoder_URL(t *testing.T) {
	got := encodeFrame(t, "WOAR", tags.ID3Data{Value: "http://a/é€"})

	want := append(header("WOAR", 11), []byte("http://a/")...)
	want = append(want, 0xE9, '?')
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x, want % x", got, want)
	}
}

func TestFrameEncoder_UserURL(t *testing.T) {
	got := encodeFrame(t, "WXXX", tags.ID3Data{Description: "D", Value: "u"})

	want := append(header("WXXX", 7),
		0xFF, 0xFE, 'D', 0x00,
		0x00, 0x00,
		'u',
	)
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x, want % x", got, want)
	}
}

func TestFrameEncoder_UserURLStartsWithBOM(t *testing.T) {
	got := encodeFrame(t, "WXXX", tags.ID3Data{Description: "d", Value: "u"})

	if len(got) < FrameHeaderLen+2 {
		t.Fatalf("frame too short: % x", got)
	}
	if got[FrameHeaderLen] != 0xFF || got[FrameHeaderLen+1] != 0xFE {
		t.Errorf("body starts with % x, want ff fe", got[FrameHeaderLen:FrameHeaderLen+2])
	}
}

func TestFrameEncoder_Comment(t *testing.T) {
	got := encodeFrame(t, "COMM", tags.ID3Data{Description: "c", Value: "x"})

	want := append(header("COMM", 14),
		0x01,
		'e', 'n', 'g',
		0xFF, 0xFE, 'c', 0x00,
		0x00, 0x00,
		0xFF, 0xFE, 'x', 0x00,
	)
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x, want % x", got, want)
	}
}

func TestFrameEncoder_CommentLanguage(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"deu", "deu"},
		{"", "eng"},
		{"de", "eng"},
		{"english", "eng"},
	}

	for _, tt := range tests {
		got := encodeFrame(t, "COMM", tags.ID3Data{Language: tt.lang, Value: "x"})
		if lang := string(got[11:14]); lang != tt.want {
			t.Errorf("language %q encoded as %q, want %q", tt.lang, lang, tt.want)
		}
	}
}

func TestFrameEncoder_Unsupported(t *testing.T) {
	for _, id := range []string{"ZZZZ", "APIC", "TMOO"} {
		calls := 0
		FrameEncoder{}.Encode(id, tags.ID3Data{Value: "x"}, func(frame []byte, err error) {
			calls++
			if !errors.Is(err, ErrUnsupportedFrame) {
				t.Errorf("Encode(%s) error = %v, want ErrUnsupportedFrame", id, err)
			}
			if frame != nil {
				t.Errorf("Encode(%s) returned a frame with the error", id)
			}
		})
		if calls != 1 {
			t.Errorf("Encode(%s) done called %d times, want 1", id, calls)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		id   string
		want FrameKind
	}{
		{"TIT2", KindText},
		{"TXXX", KindUserText},
		{"WCOP", KindURL},
		{"WXXX", KindUserURL},
		{"COMM", KindComment},
		{"ZZZZ", KindUnsupported},
		{"T", KindUnsupported},
	}
	for _, tt := range tests {
		if got := KindOf(tt.id); got != tt.want {
			t.Errorf("KindOf(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSynchsafeDigits(t *testing.T) {
	// 300 = 2*128 + 44
	got := SynchsafeDigits(300)
	if !bytes.Equal(got, []byte{2, 44}) {
		t.Errorf("SynchsafeDigits(300) = %v, want [2 44]", got)
	}

	enc, err := EncodeSynchsafe(300)
	if err != nil {
		t.Fatal(err)
	}
	if enc != [4]byte{0, 0, 2, 44} {
		t.Errorf("EncodeSynchsafe(300) = %v, want [0 0 2 44]", enc)
	}
}

func TestEncodeSynchsafe(t *testing.T) {
	tests := []struct {
		n    int
		want [4]byte
	}{
		{0, [4]byte{0, 0, 0, 0}},
		{127, [4]byte{0, 0, 0, 0x7F}},
		{128, [4]byte{0, 0, 1, 0}},
		{MaxTagSize - 1, [4]byte{0x7F, 0x7F, 0x7F, 0x7F}},
	}
	for _, tt := range tests {
		got, err := EncodeSynchsafe(tt.n)
		if err != nil {
			t.Errorf("EncodeSynchsafe(%d) error: %v", tt.n, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EncodeSynchsafe(%d) = %v, want %v", tt.n, got, tt.want)
		}
		if back := DecodeSynchsafe(got); back != tt.n {
			t.Errorf("DecodeSynchsafe(%v) = %d, want %d", got, back, tt.n)
		}
	}
}

func TestEncodeSynchsafe_Overflow(t *testing.T) {
	for _, n := range []int{MaxTagSize, -1} {
		if _, err := EncodeSynchsafe(n); !errors.Is(err, ErrSizeOverflow) {
			t.Errorf("EncodeSynchsafe(%d) error = %v, want ErrSizeOverflow", n, err)
		}
	}
}
