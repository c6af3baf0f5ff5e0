package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// Key layout:
//
//	order/<order_id>                                      → order record
//	book/<stock_id>/<side>/<price_key>/<date>/<order_id>  → empty
//	owner/<trader_id>/<order_id>                          → empty
//	trade/<trade_id>                                      → trade record
//	stock/<stock_id>                                      → JSON stock
//	symbol/<symbol>                                       → stock_id
//	trader/<trader_id>                                    → JSON trader
//	tradername/<lower(tradername)>                        → trader_id
//	seq/<name>                                            → last id
//
// Numbers are zero-padded to 20 digits so lexical order is numeric order.
// Bids store MaxInt64-price as price_key so that ascending iteration visits
// the highest bid first.

const (
	sideKeyBid   = 'B'
	sideKeyOffer = 'O'
)

func orderKey(id int64) []byte {
	return []byte(fmt.Sprintf("order/%020d", id))
}

func sideKey(s domain.OrderSide) byte {
	if s == domain.OrderSideBid {
		return sideKeyBid
	}
	return sideKeyOffer
}

func bookPrefix(stockID int64, side domain.OrderSide) []byte {
	return []byte(fmt.Sprintf("book/%020d/%c/", stockID, sideKey(side)))
}

func priceKey(side domain.OrderSide, price int64) int64 {
	if side == domain.OrderSideBid {
		return math.MaxInt64 - price
	}
	return price
}

func bookKey(o *domain.Order) []byte {
	return append(bookPrefix(o.StockID, o.Side),
		fmt.Sprintf("%020d/%020d/%020d", priceKey(o.Side, o.Price), o.OrderDate.UnixNano(), o.OrderID)...)
}

// parseBookKey extracts the price and order id from a book key.
func parseBookKey(side domain.OrderSide, key []byte) (price, orderID int64, err error) {
	parts := bytes.Split(key, []byte("/"))
	if len(parts) != 6 {
		return 0, 0, fmt.Errorf("malformed book key %q", key)
	}
	pk, err := strconv.ParseInt(string(parts[3]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed book key %q: %w", key, err)
	}
	orderID, err = strconv.ParseInt(string(parts[5]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed book key %q: %w", key, err)
	}
	return priceKey(side, pk), orderID, nil
}

func ownerPrefix(traderID int64) []byte {
	return []byte(fmt.Sprintf("owner/%020d/", traderID))
}

func ownerKey(traderID, orderID int64) []byte {
	return append(ownerPrefix(traderID), fmt.Sprintf("%020d", orderID)...)
}

func tradeKey(id int64) []byte {
	return []byte(fmt.Sprintf("trade/%020d", id))
}

func stockKey(id int64) []byte {
	return []byte(fmt.Sprintf("stock/%020d", id))
}

func symbolKey(symbol string) []byte {
	return []byte("symbol/" + symbol)
}

func traderKey(id int64) []byte {
	return []byte(fmt.Sprintf("trader/%020d", id))
}

func tradernameKey(lowerName string) []byte {
	return []byte("tradername/" + lowerName)
}

func seqKey(name string) []byte {
	return []byte("seq/" + name)
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, errors.New("invalid int64 length")
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// order record: [trader:8][stock:8][side:1][price:8][quantity:8][date:8]
const orderRecordLen = 8 + 8 + 1 + 8 + 8 + 8

func encodeOrder(o *domain.Order) []byte {
	buf := make([]byte, orderRecordLen)
	binary.BigEndian.PutUint64(buf[0:8], uint64(o.TraderID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(o.StockID))
	buf[16] = sideKey(o.Side)
	binary.BigEndian.PutUint64(buf[17:25], uint64(o.Price))
	binary.BigEndian.PutUint64(buf[25:33], uint64(o.Quantity))
	binary.BigEndian.PutUint64(buf[33:41], uint64(o.OrderDate.UnixNano()))
	return buf
}

func decodeOrder(id int64, b []byte) (*domain.Order, error) {
	if len(b) != orderRecordLen {
		return nil, errors.New("invalid order record length")
	}
	side := domain.OrderSideOffer
	if b[16] == sideKeyBid {
		side = domain.OrderSideBid
	}
	return &domain.Order{
		OrderID:   id,
		TraderID:  int64(binary.BigEndian.Uint64(b[0:8])),
		StockID:   int64(binary.BigEndian.Uint64(b[8:16])),
		Side:      side,
		Price:     int64(binary.BigEndian.Uint64(b[17:25])),
		Quantity:  int64(binary.BigEndian.Uint64(b[25:33])),
		OrderDate: time.Unix(0, int64(binary.BigEndian.Uint64(b[33:41]))).UTC(),
	}, nil
}

// trade record: [stock:8][seller:8][buyer:8][date:8][price:8][quantity:8]
const tradeRecordLen = 6 * 8

func encodeTrade(t *domain.Trade) []byte {
	buf := make([]byte, tradeRecordLen)
	binary.BigEndian.PutUint64(buf[0:8], uint64(t.StockID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(t.SellerID))
	binary.BigEndian.PutUint64(buf[16:24], uint64(t.BuyerID))
	binary.BigEndian.PutUint64(buf[24:32], uint64(t.TradeDate.UnixNano()))
	binary.BigEndian.PutUint64(buf[32:40], uint64(t.Price))
	binary.BigEndian.PutUint64(buf[40:48], uint64(t.Quantity))
	return buf
}

func decodeTrade(id int64, b []byte) (*domain.Trade, error) {
	if len(b) != tradeRecordLen {
		return nil, errors.New("invalid trade record length")
	}
	return &domain.Trade{
		TradeID:   id,
		StockID:   int64(binary.BigEndian.Uint64(b[0:8])),
		SellerID:  int64(binary.BigEndian.Uint64(b[8:16])),
		BuyerID:   int64(binary.BigEndian.Uint64(b[16:24])),
		TradeDate: time.Unix(0, int64(binary.BigEndian.Uint64(b[24:32]))).UTC(),
		Price:     int64(binary.BigEndian.Uint64(b[32:40])),
		Quantity:  int64(binary.BigEndian.Uint64(b[40:48])),
	}, nil
}

// parseIDSuffix reads the zero-padded id after the last '/' of key.
func parseIDSuffix(key []byte) (int64, error) {
	i := bytes.LastIndexByte(key, '/')
	return strconv.ParseInt(string(key[i+1:]), 10, 64)
}
