package services

import (
	"strconv"
	"time"

	"ledgerbank/models"

	"github.com/beevik/etree"
)

// BuildStatement формирует XML-выписку по журналу операций аккаунта
func BuildStatement(user *models.User, txns []models.Transaction, generatedAt time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	statement := doc.CreateElement("statement")
	statement.CreateAttr("username", user.Username)
	statement.CreateAttr("generated_at", generatedAt.UTC().Format(time.RFC3339))

	holder := statement.CreateElement("holder")
	holder.CreateElement("first_name").SetText(user.FirstName)
	holder.CreateElement("last_name").SetText(user.LastName)
	holder.CreateElement("email").SetText(user.Email)

	list := statement.CreateElement("transactions")
	list.CreateAttr("count", strconv.Itoa(len(txns)))

	var closing int64
	for _, t := range txns {
		e := list.CreateElement("transaction")
		e.CreateAttr("id", strconv.FormatUint(uint64(t.ID), 10))
		e.CreateElement("type").SetText(string(t.Type))
		e.CreateElement("amount").SetText(strconv.FormatInt(t.Amount, 10))
		e.CreateElement("balance").SetText(strconv.FormatInt(t.CurrentBalance, 10))
		e.CreateElement("created_at").SetText(t.CreatedAt.UTC().Format(time.RFC3339Nano))
		closing = t.CurrentBalance
	}

	statement.CreateElement("closing_balance").SetText(strconv.FormatInt(closing, 10))

	doc.Indent(2)
	return doc
}
