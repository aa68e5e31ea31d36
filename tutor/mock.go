package tutor

import (
	"regexp"
	"strings"
)

const mockFooter = "\n\n*Demo answer: the live model is switched off (USE_MOCK_RESPONSES).*"

var greeting = regexp.MustCompile(`(?i)\b(hello|hi|hey)\b`)

// MockReply escolhe uma resposta pronta pelo assunto da mensagem.
func MockReply(message string) string {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "xss") || strings.Contains(m, "cross-site scripting"):
		return mockXSS + mockFooter
	case strings.Contains(m, "sql injection") || strings.Contains(m, "sqli"):
		return mockSQLi + mockFooter
	case strings.Contains(m, "csrf") || strings.Contains(m, "cross-site request"):
		return mockCSRF + mockFooter
	case strings.Contains(m, "owasp top 10") || strings.Contains(m, "owasp top ten"):
		return mockTop10 + mockFooter
	case greeting.MatchString(m):
		return mockHello + mockFooter
	}
	return mockDefault + mockFooter
}

const mockXSS = `🔒 **Cross-Site Scripting (XSS)**

**What it is:** someone sneaks a script into a page your customers load, like slipping a forged notice onto your shop's bulletin board. Browsers trust it because it comes from your site.

**Why it matters:** stolen sessions, captured passwords and a defaced website.

**How to defend:**
1. Validate everything users type.
2. Escape output before showing it.
3. Send a Content-Security-Policy header.
4. Keep your web framework up to date.`

const mockSQLi = `🔒 **SQL Injection**

**What it is:** an attacker types database commands into a form field and your application runs them, like a customer writing "and open the safe" on an order slip that the clerk follows to the letter.

**Why it matters:** customer data can be read, changed or deleted.

**How to defend:**
1. Use parameterised queries everywhere.
2. Give the application's database account the least privilege it needs.
3. Validate input types and lengths.`

const mockCSRF = `🔒 **Cross-Site Request Forgery (CSRF)**

**What it is:** a malicious page makes a logged-in user's browser send a request they never meant to send, like someone forging your signature on a form while you are still at the counter.

**How to defend:**
1. Use anti-CSRF tokens on state-changing forms.
2. Set cookies with SameSite=Lax or Strict.
3. Ask for re-authentication before sensitive actions.`

const mockTop10 = `🔒 **The OWASP Top 10**

A ranked list of the most common web application risks: broken access control, cryptographic failures, injection, insecure design, security misconfiguration, vulnerable components, authentication failures, integrity failures, logging gaps and server-side request forgery.

Start with access control and patching: they close the doors attackers try first.`

const mockHello = `👋 **Hi, I'm Professor Shield!**

I help small business owners make sense of web and AI security. Ask me about XSS, SQL injection, CSRF, the OWASP Top 10 or how to keep your team's accounts safe.`

const mockDefault = `🛡️ Good question! I can walk you through web vulnerabilities such as XSS, SQL injection and CSRF, the OWASP Top 10, or risks that come with using AI tools in your business. Which one should we start with?`
