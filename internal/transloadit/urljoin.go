package transloadit

import "strings"

type urlParts struct {
	scheme, netloc, path, query, fragment string
}

// JoinURL joins URL fragments with exactly one slash between path segments.
// Scheme, host, query and fragment come from the first part that carries them.
//
//	JoinURL("https://cdn.example/videos/", "abc123", "out.mp4")
//	  == "https://cdn.example/videos/abc123/out.mp4"
func JoinURL(parts ...string) string {
	var out urlParts
	var paths []string

	for _, raw := range parts {
		p := splitURL(raw)
		if out.scheme == "" {
			out.scheme = p.scheme
		}
		if out.netloc == "" {
			out.netloc = p.netloc
		}
		if out.query == "" {
			out.query = p.query
		}
		if out.fragment == "" {
			out.fragment = p.fragment
		}
		if seg := strings.Trim(p.path, "/"); seg != "" {
			paths = append(paths, seg)
		}
	}
	out.path = strings.Join(paths, "/")

	return out.String()
}

func (u urlParts) String() string {
	s := u.path
	if u.netloc != "" || (u.scheme != "" && !strings.HasPrefix(s, "//")) {
		if s != "" && !strings.HasPrefix(s, "/") {
			s = "/" + s
		}
		s = "//" + u.netloc + s
	}
	if u.scheme != "" {
		s = u.scheme + ":" + s
	}
	if u.query != "" {
		s += "?" + u.query
	}
	if u.fragment != "" {
		s += "#" + u.fragment
	}
	return s
}

// splitURL splits without decoding or validating, so file names with spaces or
// percent signs survive untouched.
func splitURL(raw string) urlParts {
	var p urlParts
	rest := raw

	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		p.scheme = strings.ToLower(rest[:i])
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		p.netloc = rest[:end]
		rest = rest[end:]
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		p.fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		p.query = rest[i+1:]
		rest = rest[:i]
	}
	p.path = rest
	return p
}

func isScheme(s string) bool {
	for i, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}
