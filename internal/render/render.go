package render

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Armin-kho/currency-rate-bot/internal/items"
	"github.com/Armin-kho/currency-rate-bot/internal/utils"
)

// Callback data understood by the bot.
const (
	CbStartExchange = "start_exchange"
	CbAbout         = "about"
	CbBack          = "back"

	PrefixFrom = "from"
	PrefixTo   = "to"
)

// Screen is a message text plus its inline keyboard.
type Screen struct {
	Text     string
	Keyboard tgbotapi.InlineKeyboardMarkup
}

// Clock controls the request timestamp shown under a rate.
type Clock struct {
	Location *time.Location
	Calendar string
}

func (c Clock) Format(t time.Time) string {
	return utils.Timestamp(t, c.Location, c.Calendar)
}

func Welcome() Screen {
	text := "👋 Добро пожаловать в *Currency Bot*!\n\n" +
		"Этот бот поможет вам узнать актуальные курсы валют и криптовалют.\n\n" +
		"💡 *Как использовать:*\n" +
		"1. Нажмите \"💱 Узнать курс\"\n" +
		"2. Выберите валюту, которую хотите конвертировать\n" +
		"3. Выберите валюту, в которую хотите конвертировать\n" +
		"4. Получите актуальный курс!\n\n" +
		"🔄 Поддерживаются:\n" +
		"- Фиатные валюты (USD, EUR, RUB и др.)\n" +
		"- Криптовалюты (BTC, ETH, USDT и др.)\n" +
		"- Конвертация между любыми валютами\n\n" +
		"Начните работу, нажав кнопку ниже! 👇"
	return Screen{Text: text, Keyboard: MainKeyboard()}
}

func About() Screen {
	text := "ℹ️ *О боте Currency Bot*\n\n" +
		"🤖 *Версия:* 1.0\n" +
		"📊 *Функции:*\n" +
		"- Получение актуальных курсов валют\n" +
		"- Поддержка фиатных валют и криптовалют\n" +
		"- Конвертация между любыми валютами\n" +
		"- Удобный интерфейс с кнопками\n\n" +
		"📡 *Данные:* Курсы обновляются в реальном времени через CoinGecko API"
	return Screen{Text: text, Keyboard: MainKeyboard()}
}

func MainMenu() Screen {
	return Screen{Text: "🏠 *Главное меню:*", Keyboard: MainKeyboard()}
}

func ChooseFrom() Screen {
	return Screen{
		Text:     "📊 *Выберите валюту, которую хотите конвертировать:*",
		Keyboard: CurrencyKeyboard(items.All(), PrefixFrom),
	}
}

func ChooseTo(from items.Item) Screen {
	text := fmt.Sprintf("💰 *Выбрано:* %s (%s)\n\n📊 *Теперь выберите валюту, в которую хотите конвертировать:*",
		utils.EscapeMarkdown(from.Label()), from.Code)
	return Screen{Text: text, Keyboard: CurrencyKeyboard(items.All(), PrefixTo)}
}

const Loading = "⏳ Получение актуального курса..."

// Rate renders "1 FROM = rate TO" in both directions. rate must be positive.
func Rate(from, to items.Item, rate float64, at string) Screen {
	var b strings.Builder
	b.WriteString("💱 *Курс обмена*\n\n")
	fmt.Fprintf(&b, "%s (%s) → %s (%s)\n\n",
		utils.EscapeMarkdown(from.Label()), from.Code, utils.EscapeMarkdown(to.Label()), to.Code)
	fmt.Fprintf(&b, "*1 %s = %s %s*\n", from.Code, utils.FormatRate(rate), to.Code)
	fmt.Fprintf(&b, "*1 %s = %s %s*\n\n", to.Code, utils.FormatRate(1/rate), from.Code)
	b.WriteString("📊 _Данные актуальны на момент запроса_")
	if at != "" {
		b.WriteString("\n🕒 " + at)
	}
	return Screen{Text: b.String(), Keyboard: ResultKeyboard()}
}

func Unavailable(from, to items.Item) Screen {
	text := fmt.Sprintf("❌ *Ошибка:* Не удалось получить курс для %s → %s\n\nПопробуйте выбрать другие валюты.",
		utils.EscapeMarkdown(from.Label()), utils.EscapeMarkdown(to.Label()))
	return Screen{Text: text, Keyboard: ResultKeyboard()}
}

func MainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💱 Узнать курс", CbStartExchange),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ О боте", CbAbout),
		),
	)
}

// CurrencyKeyboard lays the list out two buttons per row, followed by a Back row.
func CurrencyKeyboard(list []items.Item, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, it := range list {
		label := fmt.Sprintf("%s (%s)", it.Label(), it.Code)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, prefix+"_"+it.Code))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", CbBack),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ResultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Новый обмен", CbStartExchange),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Главное меню", CbBack),
		),
	)
}

// ParseSelection splits "from_BTC" into ("from", "BTC").
func ParseSelection(data string) (prefix, code string, ok bool) {
	prefix, code, ok = strings.Cut(data, "_")
	if !ok || code == "" || (prefix != PrefixFrom && prefix != PrefixTo) {
		return "", "", false
	}
	return prefix, items.Normalize(code), true
}
