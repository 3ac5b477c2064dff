package hyperliquid

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	l1ChainID          = 1337
	zeroAddress        = "0x0000000000000000000000000000000000000000"
	mainnetAgentSource = "a"
	testnetAgentSource = "b"
)

// Signature is the r/s/v triple the exchange endpoint expects.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

// Signer holds the account key used to sign exchange actions.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key; the 0x prefix is optional.
func NewSigner(privateKey string) (*Signer, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if hexKey == "" {
		return nil, errors.New("empty private key")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address is the checksummed signer address.
func (s *Signer) Address() string { return s.address.Hex() }

// packAction msgpack-encodes action with the smallest integer encodings.
func packAction(action any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("msgpack action: %w", err)
	}
	return buf.Bytes(), nil
}

// ActionHash is keccak256(msgpack(action) || nonce || vault flag) with no vault.
func ActionHash(action any, nonce uint64) (common.Hash, error) {
	packed, err := packAction(action)
	if err != nil {
		return common.Hash{}, err
	}
	buf := bytes.NewBuffer(packed)
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	buf.Write(nonceBytes[:])
	buf.WriteByte(0x00)
	return crypto.Keccak256Hash(buf.Bytes()), nil
}

// agentTypedData wraps an action hash in the phantom agent message signed for L1 actions.
func agentTypedData(hash common.Hash, mainnet bool) apitypes.TypedData {
	source := testnetAgentSource
	if mainnet {
		source = mainnetAgentSource
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(l1ChainID),
			VerifyingContract: zeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": hash.Bytes(),
		},
	}
}

// SignL1Action signs action for submission with nonce.
func (s *Signer) SignL1Action(action any, nonce uint64, mainnet bool) (Signature, error) {
	hash, err := ActionHash(action, nonce)
	if err != nil {
		return Signature{}, err
	}
	digest, _, err := apitypes.TypedDataAndHash(agentTypedData(hash, mainnet))
	if err != nil {
		return Signature{}, fmt.Errorf("typed data hash: %w", err)
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign: %w", err)
	}
	return Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}
