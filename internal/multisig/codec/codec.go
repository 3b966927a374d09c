// Package codec implements the fixed-layout binary encoding for registry and
// proposal records.
//
// Layout is little-endian. Every record starts with an 8-byte discriminator
// (sha256("account:<Name>")[:8]). Vectors carry a 4-byte length prefix,
// identities are 32 bytes, ids are 16-byte UUIDs and timestamps are signed
// 64-bit unix seconds. Records may be padded to their reserved space; trailing
// bytes after the last field are ignored.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
)

var (
	RegistryDiscriminator = discriminator("OwnerRegistry")
	ProposalDiscriminator = discriminator("Proposal")
)

var (
	ErrTruncated     = errors.New("record truncated")
	ErrDiscriminator = errors.New("record discriminator mismatch")
	ErrBounds        = errors.New("record vector exceeds maximum")
)

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// EncodeRegistry serializes a registry record.
func EncodeRegistry(r *models.OwnerRegistry) []byte {
	w := newWriter(models.RegistrySpace(len(r.Owners)))
	w.raw(RegistryDiscriminator[:])
	w.raw(r.ID.Bytes())
	w.u32(uint32(len(r.Owners)))
	for _, owner := range r.Owners {
		w.raw(owner[:])
	}
	w.u64(r.Threshold)
	w.u8(r.AuthoritySeed)
	w.u32(r.Epoch)
	return w.bytes()
}

// DecodeRegistry parses a registry record.
func DecodeRegistry(b []byte) (*models.OwnerRegistry, error) {
	rd := &reader{buf: b}
	if err := rd.expect(RegistryDiscriminator); err != nil {
		return nil, err
	}
	r := &models.OwnerRegistry{}
	r.ID = domain.RegistryID(rd.uuid())
	n := rd.count(models.MaxOwners)
	if rd.err == nil {
		r.Owners = make([]domain.Identity, n)
		for i := range r.Owners {
			r.Owners[i] = rd.identity()
		}
	}
	r.Threshold = rd.u64()
	r.AuthoritySeed = rd.u8()
	r.Epoch = rd.u32()
	if rd.err != nil {
		return nil, fmt.Errorf("%w: decode registry: %w", sentinel.ErrCorrupt, rd.err)
	}
	return r, nil
}

// EncodeProposal serializes a proposal record.
func EncodeProposal(p *models.Proposal) []byte {
	w := newWriter(models.ProposalSpace(len(p.Action.Resources), len(p.Action.Payload)))
	w.raw(ProposalDiscriminator[:])
	w.raw(p.ID.Bytes())
	w.raw(p.RegistryID.Bytes())
	w.raw(p.Action.Target[:])
	w.u32(uint32(len(p.Action.Resources)))
	for _, res := range p.Action.Resources {
		w.raw(res.Key[:])
		w.bool(res.IsSigner)
		w.bool(res.IsWritable)
	}
	w.u32(uint32(len(p.Action.Payload)))
	w.raw(p.Action.Payload)
	w.u32(uint32(len(p.Approvals)))
	for _, approved := range p.Approvals {
		w.bool(approved)
	}
	w.i64(p.ExecutedAt)
	w.u32(p.CreatedEpoch)
	w.raw(p.Proposer[:])
	return w.bytes()
}

// DecodeProposal parses a proposal record.
func DecodeProposal(b []byte) (*models.Proposal, error) {
	rd := &reader{buf: b}
	if err := rd.expect(ProposalDiscriminator); err != nil {
		return nil, err
	}
	p := &models.Proposal{}
	p.ID = domain.ProposalID(rd.uuid())
	p.RegistryID = domain.RegistryID(rd.uuid())
	p.Action.Target = rd.identity()
	if n := rd.count(models.MaxResources); rd.err == nil && n > 0 {
		p.Action.Resources = make([]models.Resource, n)
		for i := range p.Action.Resources {
			p.Action.Resources[i] = models.Resource{
				Key:        rd.identity(),
				IsSigner:   rd.bool(),
				IsWritable: rd.bool(),
			}
		}
	}
	if n := rd.count(models.MaxPayload); rd.err == nil && n > 0 {
		p.Action.Payload = bytes.Clone(rd.take(n))
	}
	if n := rd.count(models.MaxOwners); rd.err == nil {
		p.Approvals = make([]bool, n)
		for i := range p.Approvals {
			p.Approvals[i] = rd.bool()
		}
	}
	p.ExecutedAt = rd.i64()
	p.CreatedEpoch = rd.u32()
	p.Proposer = rd.identity()
	if rd.err != nil {
		return nil, fmt.Errorf("%w: decode proposal: %w", sentinel.ErrCorrupt, rd.err)
	}
	return p, nil
}

type writer struct {
	buf []byte
}

func newWriter(capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity)}
}

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }
func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }
func (w *writer) bytes() []byte {
	return w.buf
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

// reader records the first error and then yields zero values, so decoders can
// read field by field and check once at the end.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = ErrTruncated
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) expect(want [8]byte) error {
	got := r.take(len(want))
	if r.err != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrCorrupt, r.err)
	}
	if !bytes.Equal(got, want[:]) {
		return fmt.Errorf("%w: %w", sentinel.ErrCorrupt, ErrDiscriminator)
	}
	return nil
}

// count reads a vector length and rejects values above limit.
func (r *reader) count(limit int) int {
	n := r.u32()
	if r.err == nil && n > uint32(limit) {
		r.err = fmt.Errorf("%w: %d > %d", ErrBounds, n, limit)
		return 0
	}
	return int(n)
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool {
	v := r.u8()
	if r.err == nil && v > 1 {
		r.err = fmt.Errorf("invalid bool byte %d", v)
	}
	return v == 1
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) uuid() uuid.UUID {
	var out uuid.UUID
	copy(out[:], r.take(16))
	return out
}

func (r *reader) identity() domain.Identity {
	var out domain.Identity
	copy(out[:], r.take(domain.IdentitySize))
	return out
}
