package adapter

// MarkerAttr holds the stable profile id on a result card.
const MarkerAttr = "data-outreach-id"

var (
	legacyContainerSelectors = []string{
		"ul.reusable-search__entity-result-list li.reusable-search__result-container",
		"li.reusable-search__result-container",
		"div.search-results-container li.artdeco-list__item",
		"div.reusable-search__result-container",
		"div.search-result__info",
	}

	lockupTitleSelector = "a[data-view-name='search-result-lockup-title']"

	nameSelectors     = []string{"span.entity-result__title-text a span[dir='ltr']", "span[dir='ltr']"}
	titleSelectors    = []string{"div.entity-result__primary-subtitle", "div.t-black--light"}
	locationSelectors = []string{"div.entity-result__secondary-subtitle", "div.t-12"}
	insightSelector   = "span.entity-result__simple-insight-text"

	nextSelectors = []string{
		"button[aria-label='Next']",
		"button[aria-label='Next Page']",
		"button[aria-label='Next page results']",
		"button[aria-label*='Next']",
		"button.artdeco-pagination__button--next",
		"a[aria-label='Next']",
		"a.artdeco-pagination__button--next",
	}
	nextTextPrefix = "next"

	modalSelector     = "div.send-invite, div#invite-modal, div[role='dialog']"
	addNoteSelectors  = []string{"button[aria-label*='Add a note'],button[aria-label*='Add note']"}
	noteAreaSelectors = []string{"textarea[name='message']", "textarea"}
	sendSelectors     = []string{"button[aria-label*='Send']", "button[aria-label='Send now']"}
	sendText          = "send"
	promptContainers  = []string{"div[role='dialog']", "div.artdeco-modal", "div.send-invite"}
	promptAddNote     = "Add a note"
	promptSendWithout = "Send without a note"
	promptScopes      = []string{"shadow", "document"}
	promptLayers      = []string{"attribute", "container", "text"}
)
