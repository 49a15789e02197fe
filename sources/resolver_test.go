package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

var testContract = mustAddr("0x000000000000000000000000000000000000dEaD")

const testChainID = interfaces.ChainID(31337)

func mustAddr(hex string) interfaces.Address {
	a, err := interfaces.NewAddressFromHex(hex)
	if err != nil {
		panic(err)
	}
	return a
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	name   string
	result *interfaces.ResolvedSource
	err    error
	called bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	p.called = true
	return p.result, p.err
}

func TestResolverStopsAtFirstSuccess(t *testing.T) {
	miss := &fakeProvider{name: "first", err: ErrSourceNotFound}
	hit := &fakeProvider{name: "second", result: &interfaces.ResolvedSource{Origin: interfaces.OriginExplorer, Source: "contract{}"}}
	unreached := &fakeProvider{name: "third", err: errors.New("should not run")}

	resolver := NewResolver([]Provider{miss, hit, unreached}, testLogger())

	result, err := resolver.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	require.NoError(t, err)
	assert.Equal(t, interfaces.OriginExplorer, result.Origin)
	assert.True(t, miss.called)
	assert.False(t, unreached.called)
}

func TestResolverAggregatesFailures(t *testing.T) {
	first := &fakeProvider{name: "sourcify", err: ErrSourceNotFound}
	second := &fakeProvider{name: "bytecode", err: errors.New("rpc down")}
	skipped := &fakeProvider{name: "ipfs-gateway", err: ErrNotSupported}

	resolver := NewResolver([]Provider{first, second, skipped}, testLogger())

	_, err := resolver.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sourcify")
	assert.Contains(t, err.Error(), "rpc down")
	assert.NotContains(t, err.Error(), "ipfs-gateway")
}

func TestSourcifyProviderBuildsBundle(t *testing.T) {
	mux := http.NewServeMux()
	indexPath := fmt.Sprintf("/full_match/%d/%s/sources/", testChainID, testContract)
	mux.HandleFunc(indexPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[{"name":"Token.sol","content":"contract Token {}"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider := NewSourcifyProvider(srv.URL)

	result, err := provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	require.NoError(t, err)
	assert.Equal(t, interfaces.OriginSourcify, result.Origin)
	assert.Contains(t, result.Source, "Token.sol")
	assert.Contains(t, result.Source, "contract Token {}")
	assert.Equal(t, "contract Token {}", result.Files["Token.sol"])
}

func TestSourcifyProviderMiss(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	provider := NewSourcifyProvider(srv.URL)

	_, err := provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestExplorerProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getsourcecode", r.URL.Query().Get("action"))
		assert.Equal(t, testContract.String(), r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, `{"status":"1","result":[{"SourceCode":"contract Verified {}","ContractName":"Verified"}]}`)
	}))
	defer srv.Close()

	provider := NewExplorerProvider(map[interfaces.ChainID]ExplorerCredential{
		testChainID: {APIURL: srv.URL, APIKey: "test-key"},
	})

	result, err := provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	require.NoError(t, err)
	assert.Equal(t, interfaces.OriginExplorer, result.Origin)
	assert.Equal(t, "contract Verified {}", result.Source)

	// Networks without a credential are skipped, not failed.
	_, err = provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: 1})
	assert.ErrorIs(t, err, ErrNotSupported)
}

type fakeCodeReader struct {
	code []byte
	err  error
}

func (f *fakeCodeReader) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code, f.err
}

func TestBytecodeProvider(t *testing.T) {
	provider := NewBytecodeProvider(map[interfaces.ChainID]CodeReader{
		testChainID: &fakeCodeReader{code: []byte{0x60, 0x80}},
	})

	result, err := provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	require.NoError(t, err)
	assert.Equal(t, interfaces.OriginBytecode, result.Origin)
	assert.Equal(t, "0x6080", result.Source)

	// Empty code is a miss.
	provider = NewBytecodeProvider(map[interfaces.ChainID]CodeReader{
		testChainID: &fakeCodeReader{},
	})
	_, err = provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	assert.ErrorIs(t, err, ErrSourceNotFound)

	// Unconfigured networks are skipped.
	_, err = provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: 1})
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestGatewayProviderFallsBack(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/QmHash1", r.URL.Path)
		fmt.Fprint(w, "report body")
	}))
	defer working.Close()

	provider := NewGatewayProvider([]string{broken.URL, working.URL})

	result, err := provider.Resolve(context.Background(), interfaces.SourceQuery{Pointer: "QmHash1"})
	require.NoError(t, err)
	assert.Equal(t, interfaces.OriginIPFS, result.Origin)
	assert.Equal(t, "report body", result.Source)

	// Address queries are not for gateways.
	_, err = provider.Resolve(context.Background(), interfaces.SourceQuery{Contract: testContract, ChainID: testChainID})
	assert.ErrorIs(t, err, ErrNotSupported)
}
