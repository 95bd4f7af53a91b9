/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fixtures_test.go
Description: Legacy source fixtures shared by the parser tests.
*/

package parsers

import (
	"github.com/kleascm/as400-modernizer/pkg/core"
)

const customerFlat = "CUST001JOHN DOE    123 MAIN ST    NEW YORK    NY10001 555-0123"

const customerPipe = "CUST_ID|CUST_NAME|ADDRESS|CITY|STATE|ZIP|PHONE\n" +
	"CUST001|JOHN DOE|123 MAIN ST|NEW YORK|NY|10001|555-0123"

const customerDDS = `A                                      UNIQUE
A          R CUSTOMER
A            CUSTID         10A        TEXT('Customer ID')
A            CUSTNAME       30A        TEXT('Customer Name')
A            ADDRESS        50A        TEXT('Address')
A            CITY           20A        TEXT('City')
A            STATE           2A        TEXT('State')
A            ZIPCODE         5A        TEXT('Zip Code')
A            PHONE          12A        TEXT('Phone Number')
A            CREATEDATE      8A        TEXT('Create Date')
A            STATUS          1A        TEXT('Status')
A          K CUSTID`

const employeeDDS = `A                                      UNIQUE
A          R EMPLOYEE
A            EMPID           6A         TEXT('Employee ID')
A            EMPNAME         25A        TEXT('Employee Name')
A            DEPT            10A        TEXT('Department')
A            JOBTITLE        20A        TEXT('Job Title')
A            SALARY          7P 2       TEXT('Annual Salary')
A            HIREDATE        8A         TEXT('Hire Date')
A            STATUS          1A         TEXT('Status')
A          K EMPID`

const customerSQL = `CREATE TABLE CUSTOMER (
    CUSTID CHAR(10) NOT NULL,
    CUSTNAME VARCHAR(30) NOT NULL,
    ADDRESS VARCHAR(50),
    CITY VARCHAR(20),
    STATE CHAR(2),
    ZIPCODE CHAR(5),
    PHONE VARCHAR(12),
    CREATEDATE DATE,
    STATUS CHAR(1) DEFAULT 'A',
    PRIMARY KEY (CUSTID)
);`

const customerScreen = `Customer Information System
=====================================

Customer ID: [CUST001    ]
Name:        [JOHN DOE                    ]
Address:     [123 MAIN ST                 ]
City:        [NEW YORK            ]
State:       [NY]
ZIP Code:    [10001]
Phone:       [555-0123    ]

F3=Exit  F5=Refresh  F12=Cancel
=====================================

Function: [DSP]  (DSP=Display, UPD=Update, ADD=Add, DEL=Delete)`

const customerDisplayFile = `     A                                      DSPSIZ(24 80 *DS3)
     A          R CUSTINQ
     A                                      CF03(03 'Exit')
     A                                  1 30'Customer Inquiry'
     A                                  5  5'Customer ID:'
     A            CUSTID        10A  B  5 20
     A                                  6  5'Balance . . .:'
     A            BALANCE        9Y 2O  6 20
     A            MODE           1A  H`

const customerRPG = `     H DEBUG(*YES)
     F* Customer Master File
     FCUSTOMER  IF   E           K DISK
     F* Display File
     FDSPCUST   CF   E             WORKSTN
     D* Data Structures
     D CustomerDS       DS
     D  CustID                10A
     D  CustName              30A
     D  Address               50A
     D  City                  20A
     D  State                  2A
     D  ZipCode                5A
     D  Phone                 12A
     D  CreateDate             8A
     D  Status                 1A
     C* Main Procedure
     C                   BEGSR
     C                   EXSR ReadCustomer
     C                   ENDSR`

const orderFreeRPG = `**FREE
dcl-f ORDERS usage(*input) keyed;
dcl-s Qty packed(5:0);

dcl-ds OrderDS qualified;
  OrderNo char(8);
  Amount packed(9:2); // order total
  OrdQty like(Qty);
  Shipped ind;
end-ds;

read ORDERS;
*inlr = *on;`

func raw(name, text string) *core.RawInput {
	return core.NewRawInput(name, []byte(text), core.FormatUnknown)
}

func fieldNames(fields []core.FieldDescriptor) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
