package utils

import (
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. Unlike
// common.HexToAddress, the string must describe exactly 20 bytes. Returns the parsed address, or an error if one
// occurs during conversion.
func HexStringToAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "could not decode address string '%s'", s)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, errors.Errorf("address string '%s' describes %d bytes, expected %d", s, len(b), common.AddressLength)
	}
	return common.BytesToAddress(b), nil
}
