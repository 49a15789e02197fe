package sources

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// CodeReader reads deployed contract code; *ethclient.Client satisfies it.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// BytecodeProvider retrieves deployed bytecode directly over RPC as the
// last address-based fallback. There is no source to show, but bytecode is
// still analyzable.
type BytecodeProvider struct {
	clients map[interfaces.ChainID]CodeReader
}

// NewBytecodeProvider creates a bytecode provider over per-network RPC
// clients.
func NewBytecodeProvider(clients map[interfaces.ChainID]CodeReader) *BytecodeProvider {
	return &BytecodeProvider{clients: clients}
}

// Name implements Provider.
func (p *BytecodeProvider) Name() string { return "bytecode" }

// Resolve fetches the deployed code at the queried address. An address with
// no code is a miss, not an error.
func (p *BytecodeProvider) Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	if query.Pointer != "" {
		return nil, ErrNotSupported
	}

	client, ok := p.clients[query.ChainID]
	if !ok {
		return nil, ErrNotSupported
	}

	code, err := client.CodeAt(ctx, common.BytesToAddress(query.Contract.Bytes()), nil)
	if err != nil {
		return nil, fmt.Errorf("rpc code retrieval failed: %w", err)
	}

	if len(code) == 0 {
		return nil, ErrSourceNotFound
	}

	return &interfaces.ResolvedSource{
		Origin: interfaces.OriginBytecode,
		Source: "0x" + hex.EncodeToString(code),
	}, nil
}
