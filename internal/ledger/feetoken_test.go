package ledger

import (
	"io"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"playledger/internal/model"
)

func TestIssue(t *testing.T) {
	l, _, _ := newTestLedger(t)

	require.Equal(t, Units(1_000_000), l.Token.BalanceOf(admin))
	require.NoError(t, l.Token.Issue(admin, userX, Units(100)))
	require.Equal(t, Units(100), l.Token.BalanceOf(userX))
	require.Equal(t, Units(1_000_100), l.Token.TotalSupply())

	require.ErrorIs(t, l.Token.Issue(userX, userX, uint256.NewInt(1)), ErrUnauthorized)
	require.ErrorIs(t, l.Token.Issue(admin, userX, new(uint256.Int)), ErrInvalidAmount)
	require.ErrorIs(t, l.Token.Issue(admin, "", uint256.NewInt(1)), ErrInvalidAddress)
}

func TestTransfer(t *testing.T) {
	l, _, _ := newTestLedger(t)
	require.NoError(t, l.Token.Transfer(admin, userX, Units(5)))
	require.ErrorIs(t, l.Token.Transfer(userX, userY, Units(6)), ErrInsufficientBalance)
	require.ErrorIs(t, l.Token.Transfer(userY, userX, uint256.NewInt(1)), ErrInsufficientBalance)
	require.NoError(t, l.Token.Transfer(userX, userY, Units(5)))
	require.True(t, l.Token.BalanceOf(userX).IsZero())
	require.Equal(t, Units(5), l.Token.BalanceOf(userY))
}

func TestApproveReplaces(t *testing.T) {
	l, _, _ := newTestLedger(t)
	require.NoError(t, l.Token.Approve(userX, store, Units(5)))
	require.NoError(t, l.Token.Approve(userX, store, Units(2)))
	require.Equal(t, Units(2), l.Token.AllowanceOf(userX, store))
	require.True(t, l.Token.AllowanceOf(userX, userY).IsZero())
}

func TestTransferFrom(t *testing.T) {
	l, _, _ := newTestLedger(t)
	require.NoError(t, l.Token.Transfer(admin, userX, Units(10)))

	require.ErrorIs(t, l.Token.TransferFrom(userY, userX, userY, Units(1)), ErrInsufficientAllowance)

	require.NoError(t, l.Token.Approve(userX, userY, Units(20)))
	require.ErrorIs(t, l.Token.TransferFrom(userY, userX, userY, Units(11)), ErrInsufficientBalance)
	require.Equal(t, Units(20), l.Token.AllowanceOf(userX, userY))

	require.NoError(t, l.Token.TransferFrom(userY, userX, userY, Units(4)))
	require.Equal(t, Units(16), l.Token.AllowanceOf(userX, userY))
	require.Equal(t, Units(6), l.Token.BalanceOf(userX))
	require.Equal(t, Units(4), l.Token.BalanceOf(userY))
}

func TestTokenConservation(t *testing.T) {
	l, _, _ := newTestLedger(t)
	accounts := []model.Address{admin, userX, userY, store, "z"}
	issued := Units(1_000_000)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		from := accounts[rng.Intn(len(accounts))]
		to := accounts[rng.Intn(len(accounts))]
		amount := uint256.NewInt(uint64(rng.Intn(1_000_000)))
		switch rng.Intn(4) {
		case 0:
			if l.Token.Issue(admin, to, amount) == nil {
				issued.Add(issued, amount)
			}
		case 1:
			_ = l.Token.Transfer(from, to, Units(uint64(rng.Intn(50_000))))
		case 2:
			_ = l.Token.Approve(from, to, Units(uint64(rng.Intn(100))))
		case 3:
			spender := accounts[rng.Intn(len(accounts))]
			before := l.Token.AllowanceOf(from, spender)
			moved := Units(uint64(rng.Intn(10)))
			if l.Token.TransferFrom(spender, from, to, moved) == nil {
				require.Equal(t, new(uint256.Int).Sub(before, moved), l.Token.AllowanceOf(from, spender))
			} else {
				require.Equal(t, before, l.Token.AllowanceOf(from, spender))
			}
		}

		sum := new(uint256.Int)
		for _, a := range accounts {
			sum.Add(sum, l.Token.BalanceOf(a))
		}
		require.Equal(t, issued, sum)
		require.Equal(t, issued, l.Token.TotalSupply())
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" 10000000000000000000 ")
	require.NoError(t, err)
	require.Equal(t, Units(10), v)
	require.Equal(t, "10000000000000000000", FormatAmount(v))
	require.Equal(t, "0", FormatAmount(nil))

	_, err = ParseAmount("")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseAmount("-5")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseAmount("1.5")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestErrorCode(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, err := l.Store.Play(userY, "Hope", "Q", "uri", 1)
	require.NoError(t, err)
	_, err = l.Store.Play(userY, "Hope", "Q", "uri", 1)
	require.Equal(t, CodeInsufficientAllowance, ErrorCode(err))

	require.Equal(t, CodeOK, ErrorCode(nil))
	require.Equal(t, CodeUnauthorized, ErrorCode(l.Store.SetMinted(userY, userY, 0)))
	_, err = l.Store.MintTodayAsset(userX, "meta")
	require.Equal(t, CodeNotFound, ErrorCode(err))
	require.Equal(t, CodeInternal, ErrorCode(io.EOF))
}

func TestTransferFromZeroAmountNeedsNoAllowance(t *testing.T) {
	l, _, _ := newTestLedger(t)
	require.NoError(t, l.Token.TransferFrom(store, userX, admin, new(uint256.Int)))
	require.True(t, l.Token.AllowanceOf(userX, store).IsZero())
	require.True(t, l.Token.BalanceOf(userX).IsZero())
	require.Equal(t, Units(1_000_000), l.Token.TotalSupply())

	require.ErrorIs(t, l.Token.TransferFrom(store, userX, admin, uint256.NewInt(1)), ErrInsufficientAllowance)
}
