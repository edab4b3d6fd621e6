package enums

// QualityVerdict summarizes an image quality validation run.
type QualityVerdict string

const (
	QualityVerdictPass QualityVerdict = "pass"
	QualityVerdictWarn QualityVerdict = "warn"
	QualityVerdictFail QualityVerdict = "fail"
)

func (v QualityVerdict) String() string {
	return string(v)
}

// IsValid reports whether the value is a known QualityVerdict.
func (v QualityVerdict) IsValid() bool {
	switch v {
	case QualityVerdictPass, QualityVerdictWarn, QualityVerdictFail:
		return true
	}
	return false
}
