package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeEndpointTXT creates TXT records for an advertised endpoint.
func EncodeEndpointTXT(ep *Endpoint) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyTxtVers] = TXTVers

	version := ep.Version
	if version == "" {
		version = DefaultVersion
	}
	txt[TXTKeyVersion] = version

	if ep.Root != "" {
		txt[TXTKeyRoot] = ep.Root
	}

	return txt
}

// DecodeEndpointTXT parses TXT records from endpoint discovery. Only
// the TXT-carried fields of the returned Endpoint are set; the name
// and port travel in the SRV record.
//
// Absent keys are not an error and leave their fields empty, so
// endpoints advertised with no TXT data at all still decode. Present
// keys must be well-formed.
func DecodeEndpointTXT(txt TXTRecordMap) (*Endpoint, error) {
	if vers, ok := txt[TXTKeyTxtVers]; ok && vers != TXTVers {
		return nil, fmt.Errorf("%w: unknown txtvers %q", ErrInvalidTXTRecord, vers)
	}

	ep := &Endpoint{}
	ep.Version = txt[TXTKeyVersion]

	if root, ok := txt[TXTKeyRoot]; ok && root != "" {
		if err := validateRoot(root); err != nil {
			return nil, fmt.Errorf("%w: root %q", ErrInvalidTXTRecord, root)
		}
		ep.Root = root
	}

	return ep, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format mDNS libraries exchange.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap. A bare key without '=' becomes a flag with an empty
// value; entries with an empty key are dropped.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		key, value, _ := strings.Cut(s, "=")
		if key == "" {
			continue
		}
		txt[key] = value
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
