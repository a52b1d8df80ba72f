package main

import (
	tapilevel "github.com/datazip-inc/tap-ilevel"
	driver "github.com/datazip-inc/tap-ilevel/drivers/ilevel/internal"
)

func main() {
	driver := driver.New()
	tapilevel.RegisterDriver(driver)
}
