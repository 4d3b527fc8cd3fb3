package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	TokenProgram            = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	MetaplexMetadataProgram = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// DecodeMintAccount decodes the SPL token mint account layout from
// base64 account data. Only supply and decimals are extracted.
func DecodeMintAccount(mint, dataB64 string) (*MintAccount, error) {
	data, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	// Layout: mintAuthorityOption(4) + mintAuthority(32) + supply(8 LE) +
	// decimals(1) + isInitialized(1) + ...
	if len(data) < 45 {
		return nil, fmt.Errorf("mint account data too short: %d bytes", len(data))
	}

	return &MintAccount{
		Mint:     mint,
		Supply:   binary.LittleEndian.Uint64(data[36:44]),
		Decimals: int(data[44]),
	}, nil
}

// TokenMetadata is the name/symbol pair from a Metaplex metadata account.
type TokenMetadata struct {
	Name   string
	Symbol string
}

// MetadataAddress derives the Metaplex metadata PDA for a mint.
func MetadataAddress(mint string) (string, error) {
	mintRaw, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programRaw, err := base58.Decode(MetaplexMetadataProgram)
	if err != nil {
		return "", fmt.Errorf("decode program: %w", err)
	}

	seeds := [][]byte{[]byte("metadata"), programRaw, mintRaw}
	addr := derivePDA(seeds, programRaw)
	if addr == "" {
		return "", fmt.Errorf("no valid PDA bump for mint %s", mint)
	}
	return addr, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm:
// concatenate seeds with a bump, append program ID and the PDA marker,
// SHA256, and take the first bump producing an off-curve point.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

// DecodeTokenMetadata parses name and symbol out of a Metaplex metadata
// account. Borsh layout: key(1) + updateAuthority(32) + mint(32) +
// name(u32-len string) + symbol(u32-len string) + uri.
func DecodeTokenMetadata(dataB64 string) (*TokenMetadata, error) {
	data, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	offset := 1 + 32 + 32
	name, offset, err := readBorshString(data, offset)
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	symbol, _, err := readBorshString(data, offset)
	if err != nil {
		return nil, fmt.Errorf("read symbol: %w", err)
	}

	return &TokenMetadata{
		Name:   strings.TrimRight(name, "\x00"),
		Symbol: strings.TrimRight(symbol, "\x00"),
	}, nil
}

func readBorshString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, fmt.Errorf("offset %d out of range", offset)
	}
	length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if length < 0 || offset+length > len(data) {
		return "", 0, fmt.Errorf("string length %d out of range", length)
	}
	return string(data[offset : offset+length]), offset + length, nil
}
