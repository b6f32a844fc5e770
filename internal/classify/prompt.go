package classify

import (
	"fmt"
	"strings"

	"github.com/anditomara/chatpulse/internal/model"
)

// tagDefinitions explains each allowed tag to the scoring service. The
// order mirrors model.AllowedTags.
var tagDefinitions = map[string]string{
	"news":       "Official announcements (listings, partnerships, hacks, audits).",
	"governance": "DAO proposals, voting, protocol upgrades.",
	"product":    "dApps, NFTs, token launches, staking, bridges.",
	"feedback":   "User complaints, bug reports, UX suggestions.",
	"scam":       "Phishing, fake sites, rug pulls, impersonation.",
	"education":  "Explanations of crypto concepts (e.g., gas fee, zk-proof).",
	"security":   "Exploits, vulnerability reports, wallet safety tips.",
}

// systemPrompt builds the fixed relevance rubric sent with every batch.
func systemPrompt() string {
	var defs strings.Builder
	for _, tag := range model.AllowedTags {
		fmt.Fprintf(&defs, "- **%s**: %s\n", tag, tagDefinitions[tag])
	}

	return fmt.Sprintf(`You are a precise Web3/crypto content classifier. The user will provide a list of messages in JSON format.
Analyze ONLY the "text" and "links" field of each message.

Classify based on relevance to these allowed tag topics ONLY:

%s
Rules:
1. Assign only tags from the allowed definitions.
2. Include a tag only if semantically relevant to Web3/crypto.
3. Compute a relevance score (0.0 to 1.0) based on how clearly and directly the content relates to the topics.
4. Set "keep" = true if score >= 0.70, else false.
5. Output ONLY a valid JSON array with no extra text.
6. Each object must have: "id", "platform", "keep", "score", "tags".
7. Return exactly one object per input message, in input order.

EXAMPLE INPUT:
[
  {"id": "101", "text": "example text", "platform": "channel", "links": ["http://example.com"]},
  {"id": "102", "text": "example text", "platform": "chatgroup", "links": []}
]

EXAMPLE JSON OUTPUT:
[
  {"id": "101", "platform": "channel", "keep": true, "score": 0.92, "tags": ["governance", "product"]},
  {"id": "102", "platform": "chatgroup", "keep": true, "score": 0.88, "tags": ["scam", "security"]}
]`, defs.String())
}
