package i18n

import (
	"errors"
	"strings"

	"golang.org/x/text/language"

	"github.com/pedidohub/backoffice/internal/domain"
)

// Translation keys the pipeline renders when notifying customers.
const (
	KeyOrderConfirmationSubject = "order.confirmation.subject"
	KeyOrderConfirmationBody    = "order.confirmation.body"
)

// defaultMessages backs the catalog when the translations table has no row
// for a key. Operators override these through the translations API.
var defaultMessages = map[string]map[string]string{
	KeyOrderConfirmationSubject: {
		"pt-BR": "Pedido {{order_id}} confirmado",
		"pt":    "Encomenda {{order_id}} confirmada",
		"en":    "Order {{order_id}} confirmed",
		"es":    "Pedido {{order_id}} confirmado",
		"fr":    "Commande {{order_id}} confirmée",
		"de":    "Bestellung {{order_id}} bestätigt",
		"it":    "Ordine {{order_id}} confermato",
	},
	KeyOrderConfirmationBody: {
		"pt-BR": "Olá {{customer_name}}, seu pedido {{order_id}} no valor de {{total}} {{currency}} foi confirmado e será enviado por {{supplier_name}}.",
		"pt":    "Olá {{customer_name}}, a sua encomenda {{order_id}} no valor de {{total}} {{currency}} foi confirmada e será enviada por {{supplier_name}}.",
		"en":    "Hello {{customer_name}}, your order {{order_id}} for {{total}} {{currency}} was confirmed and will be shipped by {{supplier_name}}.",
		"es":    "Hola {{customer_name}}, tu pedido {{order_id}} por {{total}} {{currency}} fue confirmado y será enviado por {{supplier_name}}.",
		"fr":    "Bonjour {{customer_name}}, votre commande {{order_id}} de {{total}} {{currency}} a été confirmée et sera expédiée par {{supplier_name}}.",
		"de":    "Hallo {{customer_name}}, Ihre Bestellung {{order_id}} über {{total}} {{currency}} wurde bestätigt und wird von {{supplier_name}} versandt.",
		"it":    "Ciao {{customer_name}}, il tuo ordine {{order_id}} di {{total}} {{currency}} è stato confermato e sarà spedito da {{supplier_name}}.",
	},
}

// Catalog resolves translation values by key and language. Stored rows win
// over the built-in defaults; the fallback chain is exact language, base
// language, English, then the key itself.
type Catalog struct {
	repo domain.TranslationRepository
}

// NewCatalog builds a catalog over the translations repository. A nil
// repository serves the built-in defaults only.
func NewCatalog(repo domain.TranslationRepository) *Catalog {
	return &Catalog{repo: repo}
}

// Message returns the raw translation value for a key in the given language.
func (c *Catalog) Message(key string, tag language.Tag) string {
	useRepo := c.repo != nil
	for _, lang := range fallbackChain(tag) {
		if useRepo {
			tr, err := c.repo.Lookup(key, lang)
			if err == nil {
				return tr.Value
			}
			if !errors.Is(err, domain.ErrTranslationNotFound) {
				// Storage trouble must not lose the notification; keep
				// walking the chain against the defaults.
				useRepo = false
			}
		}
		if byLang, ok := defaultMessages[key]; ok {
			if v, ok := byLang[lang]; ok {
				return v
			}
		}
	}

	if byLang, ok := defaultMessages[key]; ok {
		if v, ok := byLang["en"]; ok {
			return v
		}
	}
	return key
}

// Render resolves a key and substitutes the placeholder variables.
func (c *Catalog) Render(key string, tag language.Tag, vars map[string]string) string {
	return Render(c.Message(key, tag), vars)
}

// fallbackChain lists the language codes to try for a tag: exact, base, en.
func fallbackChain(tag language.Tag) []string {
	chain := []string{tag.String()}

	if base, conf := tag.Base(); conf != language.No {
		if base.String() != tag.String() {
			chain = append(chain, base.String())
		}
	}

	last := chain[len(chain)-1]
	if !strings.EqualFold(last, "en") {
		chain = append(chain, "en")
	}
	return chain
}
