package fetch

import (
	"net/url"
	"strings"
)

// Platform is a job board whose markup we know.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"myworkdayjobs.com", PlatformWorkday},
	{"workday.com", PlatformWorkday},
	{"ashbyhq.com", PlatformAshby},
}

// DetectPlatform identifies the job board from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// PlatformContentSelectors returns content selectors for a platform, most specific first.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{
			".job__description.body",
			".job__description",
			".job-description__content",
			"#content",
			".job-post-container",
		}
	case PlatformLever:
		return []string{
			".posting-page",
			".section-wrapper.page-full-width",
			".posting-description",
			".content",
		}
	case PlatformWorkday:
		return []string{
			"[data-automation-id='jobPostingDescription']",
			"[data-automation-id='jobDescription']",
			".job-description",
		}
	case PlatformAshby:
		return []string{
			"[class*='descriptionText']",
			"main",
		}
	default:
		return JobPostingSelectors()
	}
}

// commonNoise is removed from every posting: application forms, EEO text, share widgets.
var commonNoise = []string{
	"form",
	"#application-form",
	".application-form",
	".apply-button-container",
	".voluntary-disclosure",
	".eeo-statement",
	".eeo-section",
	".self-identification",
	".social-share",
	".share-buttons",
	".cookie-consent",
	".gdpr-notice",
}

// PlatformNoiseSelectors returns selectors to strip before extracting a platform's posting text.
func PlatformNoiseSelectors(platform Platform) []string {
	noise := append([]string(nil), commonNoise...)
	switch platform {
	case PlatformGreenhouse:
		return append(noise, ".application--wrapper", ".voluntary-self-id", "#usa_self_id_section")
	case PlatformLever:
		return append(noise, ".apply-section", ".posting-apply")
	case PlatformWorkday:
		return append(noise, "[data-automation-id='applyButton']")
	case PlatformAshby:
		return append(noise, "[class*='applicationForm']")
	default:
		return noise
	}
}
