package incremental

import (
	"bytes"
	"encoding/binary"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/apex/log"
	"github.com/blacktop/ld-incr/pkg/macho"
	"golang.org/x/sys/unix"
)

var (
	signalHandlerMu   sync.Mutex
	signalHandlerChan chan os.Signal
	signalHandlerPath string
)

// Reader owns a shared read-write mapping of a previously-linked Mach-O
// image, grounded on Incremental::openBinary()/closeBinary() in
// incremental.cpp: stat, mmap MAP_SHARED, parse, and an interrupt
// handler that unlinks rather than attempts orderly teardown (§5).
type Reader struct {
	path string
	file *os.File
	data []byte

	Model *Model
}

// Open maps path shared read-write, validates the Mach-O header, and
// runs the single forward walk described in §4.2. If the image carries
// no LC_INCREMENTAL command, Open still returns a Reader (so a caller
// can inspect the plain Mach-O structure) alongside SidecarMissing.
func Open(path string) (*Reader, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &IoError{Path: path, Err: err}
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IoError{Path: path, Err: err}
	}
	if st.Size() < 32 {
		f.Close()
		return nil, &MalformedImage{Kind: "header", Reason: "file too small to hold a Mach-O header"}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &IoError{Path: path, Err: err}
	}

	r := &Reader{path: path, file: f, data: data}
	installSignalHandler(r)

	hdr, cfg, cmdsStart, err := parseHeader(data)
	if err != nil {
		r.Close()
		return nil, err
	}

	m, err := walk(data, hdr, cfg, cmdsStart)
	if m != nil {
		r.Model = m
	}
	if err != nil {
		if _, missing := err.(*SidecarMissing); missing {
			return r, err
		}
		r.Close()
		return nil, err
	}
	return r, nil
}

// parseHeader validates the fixed 32-byte Mach-O header and resolves a
// TargetConfig from its cputype (§4.1). Only the 64-bit magic is
// accepted; a 32-bit or fat image is UnsupportedImage.
func parseHeader(data []byte) (macho.FileHeader, TargetConfig, int64, error) {
	var hdr macho.FileHeader
	if len(data) < 32 {
		return hdr, TargetConfig{}, 0, &MalformedImage{Kind: "header", Reason: "truncated header"}
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	switch magic {
	case macho.Magic64:
	case macho.Magic32:
		return hdr, TargetConfig{}, 0, &UnsupportedImage{Reason: "32-bit Mach-O images are not linked incrementally"}
	case macho.MagicFat, 0xbebafeca: // the fat header is stored big-endian
		return hdr, TargetConfig{}, 0, &UnsupportedImage{Reason: "fat/universal images are not linked incrementally"}
	default:
		return hdr, TargetConfig{}, 0, &MalformedImage{Kind: "header", Reason: "bad magic"}
	}

	if err := binary.Read(bytes.NewReader(data[:28]), binary.LittleEndian, &hdr); err != nil {
		return hdr, TargetConfig{}, 0, &MalformedImage{Kind: "header", Reason: "unreadable header"}
	}

	cfg, err := configForCpu(hdr.Cpu)
	if err != nil {
		return hdr, TargetConfig{}, 0, err
	}
	if hdr.Type != macho.TypeExec && hdr.Type != macho.TypeDylib &&
		hdr.Type != macho.TypeBundle && hdr.Type != macho.TypeDylinker {
		return hdr, cfg, 0, &UnsupportedImage{Reason: "file type is not exec, dylib, bundle, or dylinker"}
	}

	flags := macho.HeaderFlags(hdr.Flags)
	if flags.IncrLink() || flags.LazyInit() || hdr.Flags&0xF0000000 != 0 {
		return hdr, cfg, 0, &MalformedImage{Kind: "header", Reason: "forbidden bit set in mach_header flags"}
	}
	if flags.NoReexportedDylibs() && hdr.Type != macho.TypeDylib {
		return hdr, cfg, 0, &MalformedImage{Kind: "header", Reason: "MH_NO_REEXPORTED_DYLIBS is only valid for dylibs"}
	}

	return hdr, cfg, 32, nil
}

// File exposes the underlying open file descriptor as an io.WriterAt,
// for constructing a Patcher that writes through the same handle the
// mapping was made from.
func (r *Reader) File() *os.File { return r.file }

// Close unmaps the image, closes the underlying file descriptor, and
// uninstalls the interrupt handler if it was still armed for this
// Reader's path. It is safe to call more than once.
func (r *Reader) Close() error {
	uninstallSignalHandler(r)
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			log.Errorf("munmap %s: %v", r.path, err)
		}
		r.data = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// installSignalHandler arms a process-wide SIGINT/SIGTERM handler that
// unlinks the mapped path and exits immediately, matching the original's
// refusal to attempt orderly teardown mid-write (§5). Re-armed on every
// Open so a later Reader's path replaces an earlier one's, and stopped
// on Close via uninstallSignalHandler so a normal exit leaves nothing
// registered.
func installSignalHandler(r *Reader) {
	signalHandlerMu.Lock()
	defer signalHandlerMu.Unlock()

	if signalHandlerChan != nil {
		signal.Stop(signalHandlerChan)
		close(signalHandlerChan)
	}
	signalHandlerPath = r.path
	sig := make(chan os.Signal, 1)
	signalHandlerChan = sig
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-sig; !ok {
			return
		}
		os.Remove(r.path)
		os.Exit(1)
	}()
}

// uninstallSignalHandler stops the process-wide handler if it is still
// armed for r's path. A later Reader that has since replaced it is left
// untouched.
func uninstallSignalHandler(r *Reader) {
	signalHandlerMu.Lock()
	defer signalHandlerMu.Unlock()

	if signalHandlerChan == nil || signalHandlerPath != r.path {
		return
	}
	signal.Stop(signalHandlerChan)
	close(signalHandlerChan)
	signalHandlerChan = nil
	signalHandlerPath = ""
}
