package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePhoneForWhatsApp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "919876543210"},
		{"6000000000", "916000000000"},
		{"+91 98765 43210", "919876543210"},
		{"919876543210", "919876543210"},
		{"0919876543210", "919876543210"},
		{"098765-43210", ""},
		{"5876543210", ""},
		{"915876543210", ""},
		{"0915876543210", ""},
		{"12345", ""},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		got := SanitizePhoneForWhatsApp(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		if got != "" {
			assert.Len(t, got, 12)
		}
	}
}

func TestSanitizePhoneForWhatsApp_AllLeadingDigits(t *testing.T) {
	for lead := '0'; lead <= '9'; lead++ {
		number := string(lead) + "123456789"
		got := SanitizePhoneForWhatsApp(number)
		if lead >= '6' {
			assert.Equal(t, "91"+number, got)
		} else {
			assert.Empty(t, got)
		}
	}
}

func TestValidateIndianMobile(t *testing.T) {
	assert.True(t, ValidateIndianMobile("").Valid)
	assert.True(t, ValidateIndianMobile("  ").Valid)
	assert.True(t, ValidateIndianMobile("98765 43210").Valid)

	res := ValidateIndianMobile("12345")
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Reason)
}

func TestValidateGSTIN(t *testing.T) {
	valid := []string{"27AAPFU0939F1ZV", "29AAGCB7383J1Z4", "27AAACR5055K1Z7", "33AAACH7409R1Z8"}
	for _, g := range valid {
		assert.True(t, ValidateGSTIN(g).Valid, g)
	}

	assert.Equal(t, Result{Reason: ReasonLength}, ValidateGSTIN("27AAPFU0939F1Z"))
	assert.Equal(t, Result{Reason: ReasonLength}, ValidateGSTIN(""))
	assert.Equal(t, Result{Reason: ReasonCharset}, ValidateGSTIN("27aapfu0939f1zv"))
	assert.Equal(t, Result{Reason: ReasonCharset}, ValidateGSTIN("27AAPFU0939F1Z-"))
	assert.Equal(t, Result{Reason: ReasonChecksum}, ValidateGSTIN("29ABCDE1234F1Z5"))
}

func TestGSTINCheckCharRoundTrip(t *testing.T) {
	for _, g := range []string{"27AAPFU0939F1ZV", "29AAGCB7383J1Z4", "33AAACH7409R1Z8"} {
		check, ok := GSTINCheckChar(g[:14])
		require.True(t, ok)
		assert.Equal(t, g[14], check)
	}

	_, ok := GSTINCheckChar("short")
	assert.False(t, ok)
}

func TestValidateGSTIN_SingleCharacterMutationDetected(t *testing.T) {
	const base = "27AAPFU0939F1ZV"
	for pos := 0; pos < len(base); pos++ {
		for i := 0; i < len(gstinAlphabet); i++ {
			c := gstinAlphabet[i]
			if c == base[pos] {
				continue
			}
			mutated := base[:pos] + string(c) + base[pos+1:]
			assert.False(t, ValidateGSTIN(mutated).Valid, mutated)
		}
	}
}

func TestValidVPA(t *testing.T) {
	assert.True(t, ValidVPA("x@bank"))
	assert.True(t, ValidVPA("hari.haran-01@okicici"))
	assert.False(t, ValidVPA("no-at-sign"))
	assert.False(t, ValidVPA("name@"))
	assert.False(t, ValidVPA("@bank"))
	assert.False(t, ValidVPA("name@1bank"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("billing@example.com"))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("not-an-email"))
}

func TestParseHourOfDay(t *testing.T) {
	h, err := ParseHourOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, HourOfDay{Hour: 9, Minute: 30}, h)
	assert.Equal(t, "09:30", h.String())

	h, err = ParseHourOfDay("9:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", h.String())

	for _, bad := range []string{"24:00", "12:60", "9:5", "123:00", "", "noon"} {
		_, err := ParseHourOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestErrors(t *testing.T) {
	var errs Errors
	assert.NoError(t, errs.Err())

	errs.Add("whatsapp", "invalid", "Enter a valid 10-digit Indian mobile number")
	err := errs.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whatsapp")
}

type bindingPayload struct {
	Phone string `validate:"omitempty,indian_mobile"`
	GSTIN string `validate:"omitempty,gstin"`
	VPA   string `validate:"omitempty,upi_vpa"`
	Hour  string `validate:"omitempty,hhmm"`
}

func TestRegisterTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterTags(v))

	assert.NoError(t, v.Struct(bindingPayload{}))
	assert.NoError(t, v.Struct(bindingPayload{
		Phone: "9876543210",
		GSTIN: "27AAPFU0939F1ZV",
		VPA:   "x@bank",
		Hour:  "10:00",
	}))

	err := v.Struct(bindingPayload{Phone: "123", GSTIN: "29ABCDE1234F1Z5", VPA: "bad", Hour: "25:00"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 4)
}

type describedPayload struct {
	WhatsApp string `json:"whatsapp" validate:"omitempty,indian_mobile"`
	Name     string `json:"name,omitempty" validate:"required"`
}

func TestDescribeUsesJSONNames(t *testing.T) {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	require.NoError(t, RegisterTags(v))

	err := v.Struct(describedPayload{WhatsApp: "123"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	described := Describe(verrs)
	require.Len(t, described.Fields, 2)
	assert.Equal(t, FieldError{Field: "whatsapp", Code: "invalid_indian_mobile", Message: "must be a 10 digit Indian mobile number"}, described.Fields[0])
	assert.Equal(t, "name", described.Fields[1].Field)
	assert.Equal(t, "invalid_required", described.Fields[1].Code)
}
