/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: detector_test.go
Description: Tests for signature scoring, priority tie-breaks and rejection of
unrecognised input.
*/

package detect

import (
	"errors"
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectText(t *testing.T, name, text string) (*Detection, error) {
	t.Helper()
	d := NewDetector(DefaultOptions(), nil)
	return d.Detect(core.NewRawInput(name, []byte(text), core.FormatUnknown))
}

func TestDetectFormats(t *testing.T) {
	cases := []struct {
		name string
		text string
		want core.FormatKind
	}{
		{
			name: "fixed width",
			text: "CUST001JOHN DOE    123 MAIN ST    NEW YORK    NY10001 555-0123",
			want: core.FormatFixedWidth,
		},
		{
			name: "pipe delimited",
			text: "CUST_ID|CUST_NAME|ADDRESS|CITY|STATE|ZIP|PHONE\nCUST001|JOHN DOE|123 MAIN ST|NEW YORK|NY|10001|555-0123",
			want: core.FormatDelimited,
		},
		{
			name: "dds",
			text: "A          R CUSTOMER\nA            CUSTID         10A        TEXT('Customer ID')\nA            CUSTNAME       30A\nA          K CUSTID",
			want: core.FormatDDS,
		},
		{
			name: "sql",
			text: "CREATE TABLE CUSTOMER (\n  CUSTID CHAR(10) NOT NULL,\n  PRIMARY KEY (CUSTID)\n);",
			want: core.FormatDDS,
		},
		{
			name: "rpg fixed",
			text: "     FCUSTOMER  IF   E           K DISK\n     D CustomerDS       DS\n     D  CustID                10A\n     C                   READ CUSTOMER",
			want: core.FormatRPG,
		},
		{
			name: "rpg free",
			text: "**FREE\ndcl-s Qty packed(5:0);\n",
			want: core.FormatRPG,
		},
		{
			name: "screen capture",
			text: "Customer Information System\n\nCustomer ID: [CUST001    ]\nName:        [JOHN DOE    ]\nF3=Exit  F12=Cancel",
			want: core.FormatGreenScreen,
		},
		{
			name: "display file",
			text: "     A                                      DSPSIZ(24 80 *DS3)\n     A          R CUSTINQ\n     A            CUSTID        10A  B  5 20",
			want: core.FormatGreenScreen,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			det, err := detectText(t, tc.name, tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, det.Kind)
			assert.GreaterOrEqual(t, det.Confidence, DefaultOptions().MinConfidence)
			assert.LessOrEqual(t, det.Confidence, 1.0)
			assert.NotEmpty(t, det.Scores)
		})
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	text := "ID,NAME\n1,A\n2,B\n"
	first, err := detectText(t, "a.csv", text)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := detectText(t, "a.csv", text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDetectRejectsUnrecognised(t *testing.T) {
	_, err := detectText(t, "prose.txt", "this is just a sentence of prose")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnrecognizedFormat))

	var inputErr *core.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, 1, inputErr.Line)
	assert.Contains(t, inputErr.Detail, "below")
}

func TestDetectRejectsEmpty(t *testing.T) {
	_, err := detectText(t, "empty.txt", "\n\n  \n")
	assert.True(t, errors.Is(err, core.ErrUnrecognizedFormat))

	_, err = NewDetector(DefaultOptions(), nil).Detect(nil)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestDetectScoresFollowPriority(t *testing.T) {
	det, err := detectText(t, "dds", "A          R CUSTOMER\nA            CUSTID         10A")
	require.NoError(t, err)

	for i := 1; i < len(det.Scores); i++ {
		assert.LessOrEqual(t, det.Scores[i-1].Priority, det.Scores[i].Priority)
	}
}
