package portalguard

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

const resetMailSubject = "Redefinição de Senha - Portal Educacional"

// The body mirrors the portal's transactional mail styling. Only the reset
// URL and the year vary.
var resetMailTemplate = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e2dcd2; border-radius: 8px;">
  <div style="text-align: center; margin-bottom: 20px;">
    <h1 style="color: #8c7a63; margin-bottom: 10px;">Portal Educacional</h1>
    <p style="color: #726452; font-size: 16px;">Redefinição de Senha</p>
  </div>

  <div style="margin-bottom: 30px; color: #5f5446;">
    <p>Olá,</p>
    <p>Recebemos uma solicitação para redefinir a senha da sua conta no Portal Educacional. Para prosseguir com a redefinição, clique no botão abaixo:</p>
  </div>

  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.ResetURL}}" style="background-color: #8c7a63; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold; display: inline-block;">Redefinir Senha</a>
  </div>

  <div style="margin-bottom: 30px; color: #5f5446;">
    <p>Se você não solicitou a redefinição de senha, por favor ignore este e-mail ou entre em contato com nossa equipe de suporte.</p>
    <p>Este link expirará em 1 hora por motivos de segurança.</p>
  </div>

  <div style="border-top: 1px solid #e2dcd2; padding-top: 20px; color: #726452; font-size: 14px; text-align: center;">
    <p>Se o botão acima não funcionar, copie e cole o link abaixo em seu navegador:</p>
    <p style="word-break: break-all; color: #8c7a63;">{{.ResetURL}}</p>
  </div>

  <div style="margin-top: 30px; text-align: center; color: #726452; font-size: 12px;">
    <p>&copy; {{.Year}} Portal Educacional. Todos os direitos reservados.</p>
  </div>
</div>
`))

func composeResetMail(email, token, baseURL string) Mail {
	resetURL := fmt.Sprintf(
		"%s/reset-password?token=%s&email=%s",
		strings.TrimRight(baseURL, "/"),
		url.QueryEscape(token),
		url.QueryEscape(email),
	)

	var body strings.Builder
	// The template only fails on invalid data types; the inputs here are
	// two strings and an int.
	_ = resetMailTemplate.Execute(&body, struct {
		ResetURL string
		Year     int
	}{
		ResetURL: resetURL,
		Year:     time.Now().Year(),
	})

	return Mail{
		To:      email,
		Subject: resetMailSubject,
		HTML:    body.String(),
	}
}
