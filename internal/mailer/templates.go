package mailer

import "html/template"

type linkData struct {
	Link string
}

type welcomeData struct {
	Location string
}

type digestRow struct {
	Field string
	Value float64
}

type digestData struct {
	Location string
	Rows     []digestRow
}

const layoutHead = `<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f9; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 20px; border-radius: 8px;">`

const layoutFoot = `  </div>
</body>
</html>`

const buttonStyle = `display: block; padding: 12px 40px; background-color: #53CDFF; color: #ffffff;
text-decoration: none; border-radius: 50px; text-align: center; font-weight: bold;
margin: 20px auto 0; max-width: 250px;`

var verificationTmpl = template.Must(template.New("verification").Parse(layoutHead + `
    <h1 style="color: #4CAF50; text-align: center;">Verify your email</h1>
    <p style="text-align: center;">Click the link below to verify your email and start using the platform:</p>
    <a href="{{.Link}}" style="` + buttonStyle + `">Verify Email</a>
` + layoutFoot))

var resetTmpl = template.Must(template.New("reset").Parse(layoutHead + `
    <h1 style="color: #4CAF50; text-align: center;">Reset your password</h1>
    <p style="text-align: center;">Click the link below to reset your password:</p>
    <a href="{{.Link}}" style="` + buttonStyle + `">Reset Password</a>
` + layoutFoot))

var welcomeTmpl = template.Must(template.New("welcome").Parse(layoutHead + `
    <h1 style="color: #4CAF50; text-align: center;">Notifications enabled</h1>
    <p style="text-align: center;">You will receive a daily air quality report for <b>{{.Location}}</b> every morning.</p>
` + layoutFoot))

var digestTmpl = template.Must(template.New("digest").Parse(layoutHead + `
    <h1 style="color: #4CAF50; text-align: center;">Air quality in {{.Location}}</h1>
    <table style="margin: 0 auto; border-collapse: collapse;">
      {{range .Rows}}
      <tr>
        <td style="padding: 6px 16px; border-bottom: 1px solid #eee;">{{.Field}}</td>
        <td style="padding: 6px 16px; border-bottom: 1px solid #eee; text-align: right;">{{printf "%.2f" .Value}}</td>
      </tr>
      {{end}}
    </table>
` + layoutFoot))
