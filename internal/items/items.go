package items

import "strings"

type Kind string

const (
	KindFiat   Kind = "fiat"
	KindCrypto Kind = "crypto"
)

type Item struct {
	Code string
	Kind Kind

	Name  string
	Emoji string

	// Slug is the CoinGecko id of a crypto asset. Empty for fiat.
	Slug string
}

// Label is the button/heading text, e.g. "🇺🇸 Доллар США".
func (it Item) Label() string {
	if it.Emoji == "" {
		return it.Name
	}
	return it.Emoji + " " + it.Name
}

var fiat = []Item{
	{Code: "USD", Kind: KindFiat, Emoji: "🇺🇸", Name: "Доллар США"},
	{Code: "EUR", Kind: KindFiat, Emoji: "🇪🇺", Name: "Евро"},
	{Code: "RUB", Kind: KindFiat, Emoji: "🇷🇺", Name: "Российский рубль"},
	{Code: "GBP", Kind: KindFiat, Emoji: "🇬🇧", Name: "Британский фунт"},
	{Code: "JPY", Kind: KindFiat, Emoji: "🇯🇵", Name: "Японская иена"},
	{Code: "CNY", Kind: KindFiat, Emoji: "🇨🇳", Name: "Китайский юань"},
	{Code: "KZT", Kind: KindFiat, Emoji: "🇰🇿", Name: "Казахстанский тенге"},
	{Code: "UAH", Kind: KindFiat, Emoji: "🇺🇦", Name: "Украинская гривна"},
	{Code: "BYN", Kind: KindFiat, Emoji: "🇧🇾", Name: "Белорусский рубль"},
	{Code: "CHF", Kind: KindFiat, Emoji: "🇨🇭", Name: "Швейцарский франк"},
}

// crypto is the registry: the only source of truth for kind classification.
var crypto = []Item{
	{Code: "BTC", Kind: KindCrypto, Emoji: "₿", Name: "Биткоин", Slug: "bitcoin"},
	{Code: "ETH", Kind: KindCrypto, Emoji: "Ξ", Name: "Эфириум", Slug: "ethereum"},
	{Code: "USDT", Kind: KindCrypto, Emoji: "₮", Name: "Tether", Slug: "tether"},
	{Code: "BNB", Kind: KindCrypto, Emoji: "🔶", Name: "Binance Coin", Slug: "binancecoin"},
	{Code: "SOL", Kind: KindCrypto, Emoji: "◎", Name: "Solana", Slug: "solana"},
	{Code: "XRP", Kind: KindCrypto, Name: "XRP", Slug: "ripple"},
	{Code: "ADA", Kind: KindCrypto, Emoji: "₳", Name: "Cardano", Slug: "cardano"},
	{Code: "DOGE", Kind: KindCrypto, Emoji: "🐕", Name: "Dogecoin", Slug: "dogecoin"},
	{Code: "DOT", Kind: KindCrypto, Emoji: "●", Name: "Polkadot", Slug: "polkadot"},
	{Code: "MATIC", Kind: KindCrypto, Emoji: "⬡", Name: "Polygon", Slug: "polygon"},
	{Code: "LTC", Kind: KindCrypto, Emoji: "Ł", Name: "Litecoin", Slug: "litecoin"},
	{Code: "AVAX", Kind: KindCrypto, Emoji: "△", Name: "Avalanche", Slug: "avalanche-2"},
}

var byCode map[string]Item

func init() {
	byCode = map[string]Item{}
	for _, it := range fiat {
		byCode[it.Code] = it
	}
	for _, it := range crypto {
		byCode[it.Code] = it
	}
}

// Normalize trims and upper-cases a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ByCode(code string) (Item, bool) {
	it, ok := byCode[Normalize(code)]
	return it, ok
}

// Describe returns the catalog entry for code, or a bare fiat entry named after the code.
func Describe(code string) Item {
	if it, ok := ByCode(code); ok {
		return it
	}
	c := Normalize(code)
	return Item{Code: c, Kind: KindFiat, Name: c}
}

// IsKnown reports whether code is in the fiat list or the crypto registry.
func IsKnown(code string) bool {
	_, ok := ByCode(code)
	return ok
}

// Classify returns KindCrypto for registry members and KindFiat for anything else,
// including codes the catalog has never heard of.
func Classify(code string) Kind {
	if it, ok := ByCode(code); ok && it.Kind == KindCrypto {
		return KindCrypto
	}
	return KindFiat
}

// Slug returns the price-index id for a registered crypto code.
func Slug(code string) (string, bool) {
	it, ok := ByCode(code)
	if !ok || it.Kind != KindCrypto {
		return "", false
	}
	return it.Slug, true
}

func Fiat() []Item {
	return append([]Item(nil), fiat...)
}

func Crypto() []Item {
	return append([]Item(nil), crypto...)
}

// All returns fiat followed by crypto, in display order.
func All() []Item {
	out := make([]Item, 0, len(fiat)+len(crypto))
	out = append(out, fiat...)
	return append(out, crypto...)
}
