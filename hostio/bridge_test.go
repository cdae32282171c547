package hostio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dreamkit/dream/vm"
)

func TestBridgeOpenWriteClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	b := NewBridge()
	mem := vm.NewAddressSpace()

	pathBytes := []byte(path)
	if err := mem.WriteAt(0, pathBytes); err != nil {
		t.Fatalf("WriteAt path: %v", err)
	}

	payload := make([]byte, 60)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	if err := mem.WriteAt(4096, payload); err != nil {
		t.Fatalf("WriteAt payload: %v", err)
	}

	args := [6]uint64{0, uint64(len(pathBytes)), uint64(Create | Write | Truncate)}
	idRaw, err := b.Syscall(2, args, mem)
	if err != nil {
		t.Fatalf("Open syscall: %v", err)
	}
	id := FileID(idRaw)

	_, err = b.Syscall(1, [6]uint64{uint64(id), 4096, uint64(len(payload))}, mem)
	if err != nil {
		t.Fatalf("Write syscall: %v", err)
	}

	if _, err := b.Syscall(3, [6]uint64{uint64(id)}, mem); err != nil {
		t.Fatalf("Close syscall: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("file contents = %q, want %q", got, payload)
	}
}

func TestBridgeOpenReadWriteStdoutClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.txt")
	written := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, written, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	b := NewBridge()
	mem := vm.NewAddressSpace()

	pathBytes := []byte(path)
	if err := mem.WriteAt(0, pathBytes); err != nil {
		t.Fatalf("WriteAt path: %v", err)
	}

	idRaw, err := b.Syscall(2, [6]uint64{0, uint64(len(pathBytes)), uint64(Read)}, mem)
	if err != nil {
		t.Fatalf("Open syscall: %v", err)
	}
	id := FileID(idRaw)

	const bufAddr = 4096
	nRaw, err := b.Syscall(0, [6]uint64{uint64(id), bufAddr, 80}, mem)
	if err != nil {
		t.Fatalf("Read syscall: %v", err)
	}
	if int(nRaw) != len(written) {
		t.Fatalf("Read returned %d bytes, want %d", nRaw, len(written))
	}

	if _, err := b.Syscall(1, [6]uint64{uint64(Stdout), bufAddr, nRaw}, mem); err != nil {
		t.Fatalf("Write to stdout: %v", err)
	}

	if _, err := b.Syscall(3, [6]uint64{uint64(id)}, mem); err != nil {
		t.Fatalf("Close syscall: %v", err)
	}
}

func TestBridgeRejectsInvalidUTF8Path(t *testing.T) {
	b := NewBridge()
	mem := vm.NewAddressSpace()

	bad := []byte{0xff, 0xfe, 0xfd}
	if err := mem.WriteAt(0, bad); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	_, err := b.Syscall(2, [6]uint64{0, uint64(len(bad)), uint64(Read)}, mem)
	if err == nil {
		t.Fatal("Open with invalid UTF-8 path succeeded, want ErrInvalidPath")
	}
}

func TestBridgeBadFileIDRejected(t *testing.T) {
	b := NewBridge()
	mem := vm.NewAddressSpace()
	if _, err := b.Syscall(1, [6]uint64{uint64(BadFID), 0, 0}, mem); err == nil {
		t.Fatal("Write to BADFID succeeded, want ErrBadFileID")
	}
}
