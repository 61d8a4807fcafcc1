package model

import (
	"errors"
	"strings"
)

var ErrUnknownAsset = errors.New("unknown asset")

// Asset 资产代码，对外统一大写
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
	AssetXRP Asset = "XRP"
	AssetUSD Asset = "USD"
	AssetGBP Asset = "GBP"
	AssetEUR Asset = "EUR"
)

type AssetKind string

const (
	AssetKindCrypto AssetKind = "crypto"
	AssetKindFiat   AssetKind = "fiat"
)

type assetInfo struct {
	column string
	name   string
	kind   AssetKind
}

// 资产与 balances 表列名的固定映射，SQL 里的列名只能来自这里
var assetTable = map[Asset]assetInfo{
	AssetBTC: {column: "btc", name: "Bitcoin", kind: AssetKindCrypto},
	AssetETH: {column: "eth", name: "Ethereum", kind: AssetKindCrypto},
	AssetXRP: {column: "xrp", name: "XRP", kind: AssetKindCrypto},
	AssetUSD: {column: "usd", name: "US Dollar", kind: AssetKindFiat},
	AssetGBP: {column: "gbp", name: "British Pound", kind: AssetKindFiat},
	AssetEUR: {column: "eur", name: "Euro", kind: AssetKindFiat},
}

// Assets 所有支持的资产，顺序固定
var Assets = []Asset{AssetBTC, AssetETH, AssetXRP, AssetUSD, AssetGBP, AssetEUR}

// ParseAsset 大小写不敏感地解析资产代码
func ParseAsset(s string) (Asset, error) {
	a := Asset(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := assetTable[a]; !ok {
		return "", ErrUnknownAsset
	}
	return a, nil
}

func (a Asset) Valid() bool {
	_, ok := assetTable[a]
	return ok
}

// Column 返回 balances 表中的列名，未知资产返回空串
func (a Asset) Column() string {
	return assetTable[a].column
}

func (a Asset) Name() string {
	return assetTable[a].name
}

func (a Asset) Kind() AssetKind {
	return assetTable[a].kind
}

// CryptoAssets 返回需要从行情源获取价格的资产
func CryptoAssets() []Asset {
	var out []Asset
	for _, a := range Assets {
		if a.Kind() == AssetKindCrypto {
			out = append(out, a)
		}
	}
	return out
}
