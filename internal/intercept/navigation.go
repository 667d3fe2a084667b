package intercept

// Navigation is what a navigation start did to the host frame.
type Navigation struct {
	Stopped bool   `json:"stopped"`
	LoadURL string `json:"load_url,omitempty"`
}

// NavigationRecorder is a Navigator for hosts without a live frame: it
// keeps the StopLoading/LoadURL calls for the caller to pick up. It is not
// safe for concurrent use.
type NavigationRecorder struct {
	last Navigation
}

func (n *NavigationRecorder) StopLoading() { n.last.Stopped = true }

func (n *NavigationRecorder) LoadURL(url string) { n.last.LoadURL = url }

// Take returns the recorded navigation and clears it.
func (n *NavigationRecorder) Take() Navigation {
	last := n.last
	n.last = Navigation{}
	return last
}
