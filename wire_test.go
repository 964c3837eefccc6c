package sigil

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestWriteReadMsg(t *testing.T) {
	var buf bytes.Buffer
	msg := map[string]any{"id": "r1", "op": "eval", "expr": "(add 1 2)"}
	if err := WriteMsg(&buf, msg); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMsg(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("expected %v, got %v", msg, got)
	}
}

func TestReadMsgSequence(t *testing.T) {
	var buf bytes.Buffer
	for _, id := range []string{"r1", "r2", "r3"} {
		if err := WriteMsg(&buf, map[string]any{"id": id}); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []string{"r1", "r2", "r3"} {
		got, err := ReadMsg(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if got["id"] != id {
			t.Fatalf("expected %s, got %v", id, got["id"])
		}
	}
	if _, err := ReadMsg(&buf); err != io.EOF {
		t.Fatalf("expected EOF after last message, got %v", err)
	}
}

func TestReadMsgEOF(t *testing.T) {
	if _, err := ReadMsg(bytes.NewReader(nil)); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestMsgFrameFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMsg(&buf, map[string]any{"op": "names"}); err != nil {
		t.Fatal(err)
	}
	frame := buf.Bytes()
	if len(frame) < 4 {
		t.Fatalf("frame too short: %d bytes", len(frame))
	}
	length := binary.BigEndian.Uint32(frame[:4])
	if int(length) != len(frame)-4 {
		t.Fatalf("length prefix %d does not match body %d", length, len(frame)-4)
	}
}

func TestNextID(t *testing.T) {
	a, b := NextID(), NextID()
	if !strings.HasPrefix(a, "r") || !strings.HasPrefix(b, "r") {
		t.Fatalf("expected r-prefixed ids, got %s and %s", a, b)
	}
	if a == b {
		t.Fatalf("ids repeat: %s", a)
	}
}
