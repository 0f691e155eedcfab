package escrow

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// Invoice records serialize to a fixed binary layout: an 8-byte record-type
// discriminator followed by business(32) | investor(32) | mint(32) |
// amount(8) | salePrice(8) | dueDate(8) | status(1) | bump(1), integers in
// little-endian order. The discriminator distinguishes record kinds when
// several share one storage namespace.

const (
	// DiscriminatorLen is the length of the record-type prefix.
	DiscriminatorLen = 8
	// RecordLen is the total encoded length of an invoice record.
	RecordLen = DiscriminatorLen + 3*valueobject.IdentityLen + 3*8 + 2
)

// InvoiceDiscriminator returns the 8-byte record-type prefix for invoice
// records, the leading bytes of the digest of "record:Invoice".
func InvoiceDiscriminator() [DiscriminatorLen]byte {
	h := sha3.Sum256([]byte("record:Invoice"))
	var d [DiscriminatorLen]byte
	copy(d[:], h[:DiscriminatorLen])
	return d
}

// EncodeRecord serializes the invoice to its stable binary layout.
func EncodeRecord(inv *Invoice) []byte {
	buf := make([]byte, 0, RecordLen)
	disc := InvoiceDiscriminator()
	buf = append(buf, disc[:]...)
	buf = append(buf, inv.Business[:]...)
	buf = append(buf, inv.Investor[:]...)
	buf = append(buf, inv.Mint[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, inv.Amount)
	buf = binary.LittleEndian.AppendUint64(buf, inv.SalePrice)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(inv.DueDate))
	buf = append(buf, byte(inv.Status), inv.Bump)
	return buf
}

// DecodeRecord parses record bytes produced by EncodeRecord. The invoice
// address is not part of the layout; callers that know it set it afterwards.
func DecodeRecord(data []byte) (*Invoice, error) {
	if len(data) != RecordLen {
		return nil, ErrInvalidRecord
	}
	disc := InvoiceDiscriminator()
	if [DiscriminatorLen]byte(data[:DiscriminatorLen]) != disc {
		return nil, ErrInvalidRecord
	}

	inv := &Invoice{}
	off := DiscriminatorLen
	copy(inv.Business[:], data[off:off+valueobject.IdentityLen])
	off += valueobject.IdentityLen
	copy(inv.Investor[:], data[off:off+valueobject.IdentityLen])
	off += valueobject.IdentityLen
	copy(inv.Mint[:], data[off:off+valueobject.IdentityLen])
	off += valueobject.IdentityLen
	inv.Amount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	inv.SalePrice = binary.LittleEndian.Uint64(data[off:])
	off += 8
	inv.DueDate = int64(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	inv.Status = InvoiceStatus(data[off])
	inv.Bump = data[off+1]

	if !inv.Status.IsValid() {
		return nil, ErrInvalidRecord
	}
	return inv, nil
}
