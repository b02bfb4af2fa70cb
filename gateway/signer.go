package gateway

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature 交易所要求的 secp256k1 签名三元组。
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// Signer 用钱包私钥对 exchange action 签名。
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner 解析十六进制私钥（可带 0x 前缀）。
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Address 返回签名钱包地址（小写 hex）。
func (s *Signer) Address() string {
	return strings.ToLower(crypto.PubkeyToAddress(s.key.PublicKey).Hex())
}

// Sign 对 action JSON + nonce 做 keccak256 再签名。
func (s *Signer) Sign(action []byte, nonce int64) (Signature, error) {
	payload := make([]byte, 0, len(action)+8)
	payload = append(payload, action...)
	payload = binary.BigEndian.AppendUint64(payload, uint64(nonce))

	sig, err := crypto.Sign(crypto.Keccak256(payload), s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign action: %w", err)
	}
	return Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}
