package i18n

import (
	"fmt"
	"sort"
	"strings"
)

// Params carries the substitutions for a message. Placeholders in the
// catalog use the :name form.
type Params map[string]string

// Catalog resolves message keys to localized text. Swedish is the only
// customer-facing locale today.
type Catalog struct {
	messages map[string]string
}

// NewCatalog returns the built-in Swedish catalog.
func NewCatalog() *Catalog {
	return &Catalog{messages: svMessages}
}

// Render substitutes params into the message registered under key.
func (c *Catalog) Render(key string, params Params) (string, error) {
	tmpl, ok := c.messages[key]
	if !ok {
		return "", fmt.Errorf("unknown message key %q", key)
	}
	return substitute(tmpl, params), nil
}

// MustRender is Render for keys that are known at compile time.
func (c *Catalog) MustRender(key string, params Params) string {
	out, err := c.Render(key, params)
	if err != nil {
		panic(err)
	}
	return out
}

// Longest placeholder first so :language does not clobber :language_level.
func substitute(tmpl string, params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		tmpl = strings.ReplaceAll(tmpl, ":"+k, params[k])
	}
	return tmpl
}

// Message keys used by the notification builders.
const (
	KeyPushNewBooking          = "push.new_booking"
	KeyPushNewImmediateBooking = "push.new_immediate_booking"
	KeySMSPhoneJob             = "sms.phone_job"
	KeySMSPhysicalJob          = "sms.physical_job"
	KeySMSSessionStartRemind   = "sms.session_start_remind"
	KeyEmailJobAcceptedSubject = "email.job_accepted_subject"
	KeyEmailJobAcceptedBody    = "email.job_accepted_body"
	KeyEmailChangedInterpreter = "email.changed_interpreter"
	KeyEmailNewInterpreter     = "email.new_interpreter"
	KeyEmailChangedDate        = "email.changed_date"
	KeyEmailChangedLang        = "email.changed_lang"
	KeyEmailCanceledCustomer   = "email.canceled_customer"
	KeyEmailCanceledForReuse   = "email.canceled_for_reuse"
	KeyEmailReopenedSubject    = "email.reopened_subject"
	KeyEmailReopenedBody       = "email.reopened_body"
	KeyEmailSessionInvoice     = "email.session_invoice"
	KeyEmailSessionPayout      = "email.session_payout"
	KeyEmailExpiredSubject     = "email.expired_subject"
	KeyEmailExpiredBody        = "email.expired_body"
	KeyEmailNotCarriedOut      = "email.not_carried_out"
)

var svMessages = map[string]string{
	KeyPushNewBooking:          "Ny bokning för :languagetolk :durationmin :due",
	KeyPushNewImmediateBooking: "Ny akutbokning för :languagetolk :durationmin",

	KeySMSPhoneJob:           "Du har fått en ny telefontolkning :date kl :time i :duration min mot :language. Acceptera uppdraget i appen. Ref :booking_id",
	KeySMSPhysicalJob:        "Du har fått en ny platstolkning :date kl :time i :duration min mot :language i :town. Acceptera uppdraget i appen. Ref :booking_id",
	KeySMSSessionStartRemind: "Detta är en påminnelse om att du har en :languagetolkning (:medium) kl :time den :date i :duration min. Lycka till och kom ihåg att ge feedback efteråt!",

	KeyEmailJobAcceptedSubject: "Bekräftelse - tolk har accepterat er bokning (bokning # :booking_id)",
	KeyEmailJobAcceptedBody:    "Er bokning # :booking_id har accepterats av en tolk. Tolkningen sker :date kl :time.",
	KeyEmailChangedInterpreter: "Meddelande om ändring av tolkbokning # :booking_id - tolken har bytts ut.",
	KeyEmailNewInterpreter:     "Du har tilldelats tolkuppdrag # :booking_id, :date kl :time. Se din bokningslista för detaljer.",
	KeyEmailChangedDate:        "Meddelande om ändring av tolkbokning # :booking_id - tiden har ändrats från :old_time till :new_time.",
	KeyEmailChangedLang:        "Meddelande om ändring av tolkbokning # :booking_id - språket har ändrats från :old_lang till :new_lang.",
	KeyEmailCanceledCustomer:   "Er bokning # :booking_id har avbokats. Tack för att ni använder våra tjänster.",
	KeyEmailCanceledForReuse:   "Tolken för bokning # :booking_id har avbokat sig. Vi söker nu en ny tolk till uppdraget.",
	KeyEmailReopenedSubject:    "Bokning # :booking_id är åter öppen för tolkar",
	KeyEmailReopenedBody:       "Bokning # :booking_id har återöppnats och är nu synlig för tolkar igen. Tolkningen sker :date kl :time.",
	KeyEmailSessionInvoice:     "Tolkningen för bokning # :booking_id är avslutad. Fakturaunderlag: :session_time mot :language.",
	KeyEmailSessionPayout:      "Tolkningen för bokning # :booking_id är avslutad. Löneunderlag: :session_time, ersättning :amount SEK.",
	KeyEmailExpiredSubject:     "Bokning # :booking_id har löpt ut",
	KeyEmailExpiredBody:        "Ingen tolk accepterade bokning # :booking_id innan :expired_at. Bokningen har markerats som utgången.",
	KeyEmailNotCarriedOut:      "Kunden ringde inte upp för bokning # :booking_id. Uppdraget registreras som genomfört för tolkens del.",
}
